// Package media enforces the JSON-only media policy: request bodies must be
// application/json (415 otherwise) and responses must be acceptable to the
// caller (406 otherwise).
package media

import (
	"mime"
	"net/http"
	"strings"

	"github.com/munnerz/goautoneg"

	dErrors "marina/pkg/domain-errors"
	"marina/pkg/platform/httputil"
)

const JSON = "application/json"

// RequireJSONBody rejects requests whose Content-Type is not application/json.
func RequireJSONBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsJSONContent(r.Header.Get("Content-Type")) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnsupportedMediaType, "The sent media type is unsupported"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAcceptJSON rejects requests that cannot accept a JSON response.
func RequireAcceptJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !AcceptsJSON(r.Header.Get("Accept")) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotAcceptable, "The requested media type is not acceptable"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IsJSONContent reports whether a Content-Type header names JSON. Parameters
// such as charset are ignored.
func IsJSONContent(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.EqualFold(mt, JSON)
}

// AcceptsJSON reports whether an Accept header admits application/json.
// A missing header accepts anything.
func AcceptsJSON(accept string) bool {
	if strings.TrimSpace(accept) == "" {
		return true
	}
	return goautoneg.Negotiate(accept, []string{JSON}) != ""
}
