// Package testutil holds request builders and response assertions shared by
// the handler, router and command tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marina/pkg/platform/httputil"
)

const jsonType = "application/json"

// NewJSONRequest marshals body (nil sends no body) and marks the request as
// sending and accepting JSON.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	raw := ""
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err, "marshal request body")
		raw = string(b)
	}
	req := NewRequestWithBody(t, method, path, raw, jsonType)
	req.Header.Set("Accept", jsonType)
	return req
}

// NewRequest has no body and no negotiation headers.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, http.NoBody)
}

// NewRequestWithBody sends body verbatim. An empty contentType leaves the
// header unset.
func NewRequestWithBody(t *testing.T, method, path, body, contentType string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func DoRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// UnmarshalResponse decodes the recorded body into a new T.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	out := new(T)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out), "decode body %q", rr.Body.String())
	return out
}

func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	assert.Equal(t, want, rr.Code, "body: %s", rr.Body.String())
}

// AssertStatusAndError checks the status and the error envelope. An empty
// description skips the description check.
func AssertStatusAndError(t *testing.T, rr *httptest.ResponseRecorder, status int, code, description string) {
	t.Helper()
	AssertStatus(t, rr, status)
	got := UnmarshalResponse[httputil.ErrorResponse](t, rr)
	assert.Equal(t, code, got.Error, "error code")
	if description != "" {
		assert.Equal(t, description, got.ErrorDescription, "error description")
	}
}
