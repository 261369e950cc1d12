package httputil

import (
	"net/http"
	"net/url"
	"strings"
)

// Links builds absolute URLs for self and next links. When a base URL is
// configured it wins; otherwise the request's scheme and host are used,
// honouring X-Forwarded-Proto from a terminating proxy.
type Links struct {
	base string
}

func NewLinks(base string) Links {
	return Links{base: strings.TrimRight(base, "/")}
}

// Origin returns scheme://host for r.
func (l Links) Origin(r *http.Request) string {
	if l.base != "" {
		return l.base
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

// Self returns the canonical URL of one entity in collection.
func (l Links) Self(r *http.Request, collection, id string) string {
	return l.Origin(r) + "/" + collection + "/" + id
}

// Ref is the {id, self} form used for related entities.
type Ref struct {
	ID   string `json:"id"`
	Self string `json:"self"`
}

// Ref links one entity in collection.
func (l Links) Ref(r *http.Request, collection, id string) Ref {
	return Ref{ID: id, Self: l.Self(r, collection, id)}
}

// Next returns the collection URL with the cursor percent-encoded.
func (l Links) Next(r *http.Request, collection, cursor string) string {
	if cursor == "" {
		return ""
	}
	return l.Origin(r) + "/" + collection + "?cursor=" + url.QueryEscape(cursor)
}

// ListResponse is the envelope for every paginated collection.
type ListResponse[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next,omitempty"`
	Total int    `json:"total"`
}

// MethodNotAllowed answers 405 and advertises the permitted methods.
func MethodNotAllowed(allowed ...string) http.HandlerFunc {
	allow := strings.Join(allowed, ", ")
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", allow)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
