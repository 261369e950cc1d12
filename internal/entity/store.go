// Package entity is the storage boundary of the service: a schemaless,
// non-transactional key-value store of entities grouped by kind.
//
// Backends (memory, Cloud Datastore, Postgres, Redis) all honour the same
// contract:
//
//   - ids are positive int64 values assigned by the store on Create
//   - Update is an unconditional put; concurrent writers race and the last
//     write wins
//   - Query returns at most Limit entities in the backend's natural order
//     (ascending id for every backend here) and an opaque cursor when more
//     results exist
//   - no operation spans more than one entity atomically
package entity

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"marina/pkg/platform/sentinel"
)

// Kind names an entity collection.
type Kind string

const (
	KindBoat Kind = "Boat"
	KindLoad Kind = "Load"
	KindUser Kind = "User"
)

// Props holds the stored fields of an entity. Values are limited to string,
// float64, nil and []string so that every backend round-trips them unchanged.
type Props map[string]any

// Entity is one stored record.
type Entity struct {
	Kind  Kind
	ID    int64
	Props Props
}

// Filter selects entities whose string field equals Value.
type Filter struct {
	Field string
	Value string
}

// Query describes one page read.
type Query struct {
	Kind   Kind
	Filter *Filter
	Cursor string
	Limit  int
}

// Page is the result of a Query. Next is empty when the backend reported no
// further results.
type Page struct {
	Entities []Entity
	Next     string
}

// Store is the entity store contract shared by all backends.
type Store interface {
	Create(ctx context.Context, kind Kind, props Props) (int64, error)
	Get(ctx context.Context, kind Kind, id int64) (Entity, error)
	Update(ctx context.Context, kind Kind, id int64, props Props) error
	Delete(ctx context.Context, kind Kind, id int64) error
	Query(ctx context.Context, q Query) (Page, error)
	Count(ctx context.Context, kind Kind, filter *Filter) (int, error)
}

// ParseID turns a wire id into a store id. Anything that is not a positive
// decimal integer yields sentinel.ErrInvalidKey.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id %q: %w", raw, sentinel.ErrInvalidKey)
	}
	return id, nil
}

// FormatID renders a store id for the wire.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Clone returns a shallow copy with slices copied, so callers can mutate the
// result without touching the stored record.
func (p Props) Clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		if s, ok := v.([]string); ok {
			out[k] = append([]string(nil), s...)
			continue
		}
		out[k] = v
	}
	return out
}

// Text returns the string value of field, or "" when absent or not a string.
func (p Props) Text(field string) string {
	s, _ := p[field].(string)
	return s
}

// Number returns the numeric value of field, or 0.
func (p Props) Number(field string) float64 {
	switch v := p[field].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Strings returns the string list stored under field.
func (p Props) Strings(field string) []string {
	switch v := p[field].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// normalize converts values decoded by JSON or Datastore ([]any lists) into
// the canonical Props types.
func normalize(p Props) Props {
	if p == nil {
		return Props{}
	}
	for k, v := range p {
		if list, ok := v.([]any); ok {
			p[k] = Props{k: list}.Strings(k)
		}
	}
	return p
}

func matches(p Props, f *Filter) bool {
	if f == nil {
		return true
	}
	s, ok := p[f.Field].(string)
	return ok && s == f.Value
}
