package media

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcceptsJSON(t *testing.T) {
	cases := map[string]bool{
		"":                                  true,
		"application/json":                  true,
		"*/*":                               true,
		"application/*":                     true,
		"text/html, application/json;q=0.5": true,
		"text/html":                         false,
		"application/xml":                   false,
	}
	for header, want := range cases {
		assert.Equal(t, want, AcceptsJSON(header), "Accept: %q", header)
	}
}

func TestIsJSONContent(t *testing.T) {
	assert.True(t, IsJSONContent("application/json"))
	assert.True(t, IsJSONContent("application/json; charset=utf-8"))
	assert.False(t, IsJSONContent(""))
	assert.False(t, IsJSONContent("text/plain"))
	assert.False(t, IsJSONContent("application/x-www-form-urlencoded"))
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("body must be json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/boats", nil)
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		RequireJSONBody(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("response must be acceptable", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/boats", nil)
		req.Header.Set("Accept", "text/html")
		rec := httptest.NewRecorder()
		RequireAcceptJSON(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotAcceptable, rec.Code)
	})

	t.Run("json passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/boats", nil)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		RequireJSONBody(RequireAcceptJSON(ok)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
