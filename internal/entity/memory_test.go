package entity

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"marina/pkg/platform/sentinel"
)

func TestMemoryStoreContract(t *testing.T) {
	suite.Run(t, &storeContract{newStore: func() Store { return NewMemory() }})
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.Create(ctx, KindBoat, Props{"loads": []string{"1"}})
	require.NoError(t, err)

	got, err := m.Get(ctx, KindBoat, id)
	require.NoError(t, err)
	got.Props["loads"] = append(got.Props.Strings("loads"), "2")

	again, err := m.Get(ctx, KindBoat, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, again.Props.Strings("loads"))
}

func TestMemoryRejectsForeignCursor(t *testing.T) {
	_, err := NewMemory().Query(context.Background(), Query{Kind: KindBoat, Cursor: "not-a-cursor!", Limit: 5})
	assert.ErrorIs(t, err, sentinel.ErrInvalidCursor)
}

func TestMemoryConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	const n = 50

	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := m.Create(ctx, KindLoad, Props{"item": "x"})
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	unique := map[int64]bool{}
	for id := range ids {
		unique[id] = true
	}
	assert.Len(t, unique, n)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "42", FormatID(id))

	for _, raw := range []string{"", "abc", "0", "-3", "4.5"} {
		_, err := ParseID(raw)
		assert.ErrorIs(t, err, sentinel.ErrInvalidKey, raw)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	after, err := decodeCursor(encodeCursor(17))
	require.NoError(t, err)
	assert.Equal(t, int64(17), after)

	after, err = decodeCursor("")
	require.NoError(t, err)
	assert.Zero(t, after)
}
