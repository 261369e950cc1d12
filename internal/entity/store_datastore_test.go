package entity

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"cloud.google.com/go/datastore"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"marina/pkg/platform/sentinel"
)

func TestPropertyListConversion(t *testing.T) {
	props := Props{
		"owner":   "sub-1",
		"length":  12.0,
		"loads":   []string{"3", "4"},
		"carrier": nil,
	}

	pl := toPropertyList(props)
	names := make([]string, len(pl))
	for i, p := range pl {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"carrier", "length", "loads", "owner"}, names, "properties are written in a stable order")
	assert.Equal(t, []any{"3", "4"}, pl[2].Value, "lists are stored as Datastore arrays")

	if diff := cmp.Diff(props, fromPropertyList(pl)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPropertyListIntegersBecomeNumbers(t *testing.T) {
	got := fromPropertyList(datastore.PropertyList{{Name: "length", Value: int64(40)}})
	assert.Equal(t, 40.0, got.Number("length"))
}

func TestPropertyListIndexesOnlyFilteredFields(t *testing.T) {
	pl := toPropertyList(Props{
		"owner":   "sub-1",
		"carrier": "7",
		"user_id": "sub-2",
		"name":    strings.Repeat("n", 2000),
		"item":    "rope",
		"loads":   []string{"3"},
	})
	for _, p := range pl {
		switch p.Name {
		case "owner", "carrier", "user_id":
			assert.False(t, p.NoIndex, p.Name)
		default:
			assert.True(t, p.NoIndex, p.Name)
		}
	}
}

func TestUpdateErrorMapsMissingEntity(t *testing.T) {
	missing := status.Error(codes.NotFound, "no entity to update")

	err := updateError(KindBoat, 42, missing)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Contains(t, err.Error(), "Boat 42")

	wrapped := updateError(KindLoad, 7, fmt.Errorf("commit: %w", missing))
	assert.ErrorIs(t, wrapped, sentinel.ErrNotFound)

	other := updateError(KindLoad, 7, status.Error(codes.Unavailable, "backend down"))
	assert.False(t, errors.Is(other, sentinel.ErrNotFound))
	assert.Equal(t, codes.Unavailable, status.Code(errors.Unwrap(other)))
}
