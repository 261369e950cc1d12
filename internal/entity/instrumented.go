package entity

import (
	"context"
	"errors"
	"time"

	"marina/internal/platform/metrics"
	"marina/pkg/platform/sentinel"
)

// Instrumented decorates a Store with per-operation latency and error
// metrics labelled by backend name.
type Instrumented struct {
	next    Store
	backend string
	metrics *metrics.Metrics
}

// Instrument wraps next. A nil m returns next unchanged.
func Instrument(next Store, backend string, m *metrics.Metrics) Store {
	if m == nil {
		return next
	}
	return &Instrumented{next: next, backend: backend, metrics: m}
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	failed := err != nil && !errors.Is(err, sentinel.ErrNotFound)
	s.metrics.ObserveStore(s.backend, op, start, failed)
}

func (s *Instrumented) Create(ctx context.Context, kind Kind, props Props) (int64, error) {
	start := time.Now()
	id, err := s.next.Create(ctx, kind, props)
	s.observe("create", start, err)
	return id, err
}

func (s *Instrumented) Get(ctx context.Context, kind Kind, id int64) (Entity, error) {
	start := time.Now()
	e, err := s.next.Get(ctx, kind, id)
	s.observe("get", start, err)
	return e, err
}

func (s *Instrumented) Update(ctx context.Context, kind Kind, id int64, props Props) error {
	start := time.Now()
	err := s.next.Update(ctx, kind, id, props)
	s.observe("update", start, err)
	return err
}

func (s *Instrumented) Delete(ctx context.Context, kind Kind, id int64) error {
	start := time.Now()
	err := s.next.Delete(ctx, kind, id)
	s.observe("delete", start, err)
	return err
}

func (s *Instrumented) Query(ctx context.Context, q Query) (Page, error) {
	start := time.Now()
	p, err := s.next.Query(ctx, q)
	s.observe("query", start, err)
	return p, err
}

func (s *Instrumented) Count(ctx context.Context, kind Kind, filter *Filter) (int, error) {
	start := time.Now()
	n, err := s.next.Count(ctx, kind, filter)
	s.observe("count", start, err)
	return n, err
}
