// Package listing pages through any entity kind with opaque cursors.
package listing

import (
	"context"
	"errors"

	"marina/internal/entity"
	dErrors "marina/pkg/domain-errors"
	"marina/pkg/platform/sentinel"
)

// PageSize is the fixed number of entities returned per page.
const PageSize = 5

// Store is the slice of the entity store the listing service reads.
type Store interface {
	Query(ctx context.Context, q entity.Query) (entity.Page, error)
	Count(ctx context.Context, kind entity.Kind, filter *entity.Filter) (int, error)
}

// Request selects one page. Cursor is the value returned as Next by the
// previous page, round-tripped verbatim.
type Request struct {
	Kind   entity.Kind
	Filter *entity.Filter
	Cursor string
}

// Result is one page plus the size of the whole matching set.
type Result struct {
	Entities []entity.Entity
	Next     string
	Total    int
}

// Service pages and counts entities.
type Service struct {
	store Store
}

// New constructs a listing Service.
func New(store Store) *Service {
	return &Service{store: store}
}

// Page returns up to PageSize entities. Next is empty on the last page.
func (s *Service) Page(ctx context.Context, req Request) (*Result, error) {
	page, err := s.store.Query(ctx, entity.Query{
		Kind:   req.Kind,
		Filter: req.Filter,
		Cursor: req.Cursor,
		Limit:  PageSize,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidCursor) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid cursor")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list entities")
	}
	return &Result{Entities: page.Entities, Next: page.Next}, nil
}

// Count reports how many entities match filter, ignoring pagination.
func (s *Service) Count(ctx context.Context, kind entity.Kind, filter *entity.Filter) (int, error) {
	n, err := s.store.Count(ctx, kind, filter)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count entities")
	}
	return n, nil
}

// PageWithTotal returns a page with Total filled from Count.
func (s *Service) PageWithTotal(ctx context.Context, req Request) (*Result, error) {
	res, err := s.Page(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.Total, err = s.Count(ctx, req.Kind, req.Filter); err != nil {
		return nil, err
	}
	return res, nil
}

// Decode maps a page of entities into typed models.
func Decode[T any](entities []entity.Entity, fn func(entity.Entity) T) []T {
	out := make([]T, 0, len(entities))
	for _, e := range entities {
		out = append(out, fn(e))
	}
	return out
}
