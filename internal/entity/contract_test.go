package entity

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"

	"marina/pkg/platform/sentinel"
)

// storeContract exercises the behaviour every backend must share. Backend
// suites embed it and set newStore.
type storeContract struct {
	suite.Suite
	newStore func() Store
	store    Store
}

func (s *storeContract) SetupTest() {
	s.store = s.newStore()
}

func (s *storeContract) TestCreateGetRoundTrip() {
	ctx := context.Background()
	props := Props{
		"owner":  "sub-1",
		"name":   "Sea Witch",
		"type":   "Catamaran",
		"length": 28.5,
		"loads":  []string{"7", "9"},
	}
	id, err := s.store.Create(ctx, KindBoat, props)
	s.Require().NoError(err)
	s.Positive(id)

	got, err := s.store.Get(ctx, KindBoat, id)
	s.Require().NoError(err)
	s.Equal(id, got.ID)
	if diff := cmp.Diff(props, got.Props); diff != "" {
		s.Failf("props mismatch", "(-want +got):\n%s", diff)
	}
}

func (s *storeContract) TestNullFieldRoundTrip() {
	ctx := context.Background()
	id, err := s.store.Create(ctx, KindLoad, Props{"item": "Lumber", "carrier": nil})
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, KindLoad, id)
	s.Require().NoError(err)
	v, present := got.Props["carrier"]
	s.True(present)
	s.Nil(v)
}

func (s *storeContract) TestGetMissing() {
	_, err := s.store.Get(context.Background(), KindBoat, 999999)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeContract) TestGetWrongKind() {
	ctx := context.Background()
	id, err := s.store.Create(ctx, KindLoad, Props{"item": "Rope"})
	s.Require().NoError(err)

	_, err = s.store.Get(ctx, KindBoat, id)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeContract) TestUpdateLastWriteWins() {
	ctx := context.Background()
	id, err := s.store.Create(ctx, KindBoat, Props{"owner": "a", "name": "first"})
	s.Require().NoError(err)

	s.Require().NoError(s.store.Update(ctx, KindBoat, id, Props{"owner": "a", "name": "second"}))
	s.Require().NoError(s.store.Update(ctx, KindBoat, id, Props{"owner": "a", "name": "third"}))

	got, err := s.store.Get(ctx, KindBoat, id)
	s.Require().NoError(err)
	s.Equal("third", got.Props.Text("name"))
}

func (s *storeContract) TestUpdateMovesFilterMembership() {
	ctx := context.Background()
	id, err := s.store.Create(ctx, KindLoad, Props{"item": "Salt", "carrier": "10"})
	s.Require().NoError(err)

	s.Require().NoError(s.store.Update(ctx, KindLoad, id, Props{"item": "Salt", "carrier": nil}))

	n, err := s.store.Count(ctx, KindLoad, &Filter{Field: "carrier", Value: "10"})
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *storeContract) TestUpdateMissing() {
	err := s.store.Update(context.Background(), KindBoat, 999999, Props{"name": "ghost"})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeContract) TestDelete() {
	ctx := context.Background()
	id, err := s.store.Create(ctx, KindBoat, Props{"owner": "a"})
	s.Require().NoError(err)

	s.Require().NoError(s.store.Delete(ctx, KindBoat, id))
	_, err = s.store.Get(ctx, KindBoat, id)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.NoError(s.store.Delete(ctx, KindBoat, id), "delete is idempotent")

	n, err := s.store.Count(ctx, KindBoat, &Filter{Field: "owner", Value: "a"})
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *storeContract) TestQueryPagesWithoutOverlap() {
	ctx := context.Background()
	want := map[int64]bool{}
	for i := range 12 {
		id, err := s.store.Create(ctx, KindBoat, Props{"owner": "pager", "name": fmt.Sprintf("boat-%d", i)})
		s.Require().NoError(err)
		want[id] = true
	}
	// Noise that the filter must exclude.
	for range 3 {
		_, err := s.store.Create(ctx, KindBoat, Props{"owner": "someone-else"})
		s.Require().NoError(err)
	}

	filter := &Filter{Field: "owner", Value: "pager"}
	seen := map[int64]bool{}
	var sizes []int
	cursor := ""
	for {
		page, err := s.store.Query(ctx, Query{Kind: KindBoat, Filter: filter, Cursor: cursor, Limit: 5})
		s.Require().NoError(err)
		sizes = append(sizes, len(page.Entities))
		for _, e := range page.Entities {
			s.False(seen[e.ID], "entity %d returned twice", e.ID)
			seen[e.ID] = true
		}
		if page.Next == "" {
			break
		}
		cursor = page.Next
	}

	s.Equal([]int{5, 5, 2}, sizes)
	s.Equal(want, seen)

	n, err := s.store.Count(ctx, KindBoat, filter)
	s.Require().NoError(err)
	s.Equal(12, n)
}

func (s *storeContract) TestQueryExactPageHasNoNext() {
	ctx := context.Background()
	for range 5 {
		_, err := s.store.Create(ctx, KindLoad, Props{"item": "crate"})
		s.Require().NoError(err)
	}
	page, err := s.store.Query(ctx, Query{Kind: KindLoad, Limit: 5})
	s.Require().NoError(err)
	s.Len(page.Entities, 5)
	s.Empty(page.Next)
}

func (s *storeContract) TestQueryEmpty() {
	page, err := s.store.Query(context.Background(), Query{Kind: KindUser, Limit: 5})
	s.Require().NoError(err)
	s.NotNil(page.Entities)
	s.Empty(page.Entities)
	s.Empty(page.Next)
}
