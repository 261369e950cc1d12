package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marina/internal/entity"
	"marina/internal/listing"
	"marina/internal/platform/logger"
	"marina/internal/user/service"
	"marina/pkg/platform/httputil"
	"marina/pkg/testutil"
)

func TestListUsers(t *testing.T) {
	store := entity.NewMemory()
	svc := service.New(store, listing.New(store), service.WithLogger(logger.Discard()))
	for i := range 7 {
		_, _, err := svc.FindOrCreate(context.Background(), fmt.Sprintf("sub-%d", i), "First", "Last")
		require.NoError(t, err)
	}

	r := chi.NewRouter()
	New(svc, httputil.NewLinks("https://marina.test"), logger.Discard()).Register(r)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/users", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	page := testutil.UnmarshalResponse[httputil.ListResponse[Response]](t, rr)
	require.Len(t, page.Items, 5)
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, "sub-0", page.Items[0].UserID)
	assert.Equal(t, "https://marina.test/users/"+page.Items[0].ID, page.Items[0].Self)
	assert.Contains(t, page.Next, "https://marina.test/users?cursor=")
}

func TestUsersCollectionIsReadOnly(t *testing.T) {
	store := entity.NewMemory()
	r := chi.NewRouter()
	New(service.New(store, listing.New(store)), httputil.NewLinks(""), logger.Discard()).Register(r)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		rr := testutil.DoRequest(r, testutil.NewRequest(t, method, "/users"))
		testutil.AssertStatus(t, rr, http.StatusMethodNotAllowed)
		assert.Equal(t, "GET", rr.Header().Get("Allow"))
	}

	req := testutil.NewRequest(t, http.MethodGet, "/users")
	req.Header.Set("Accept", "text/plain")
	testutil.AssertStatus(t, testutil.DoRequest(r, req), http.StatusNotAcceptable)
}
