package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"marina/internal/audit"
	"marina/internal/cargo/metrics"
	"marina/internal/cargo/models"
	"marina/internal/entity"
	"marina/internal/listing"
	vesselmodels "marina/internal/vessel/models"
	dErrors "marina/pkg/domain-errors"
	"marina/pkg/platform/sentinel"
)

// Store is the part of the entity store the cargo manager uses. Deleting a
// load also rewrites the manifest of the Boat carrying it.
type Store interface {
	Create(ctx context.Context, kind entity.Kind, props entity.Props) (int64, error)
	Get(ctx context.Context, kind entity.Kind, id int64) (entity.Entity, error)
	Update(ctx context.Context, kind entity.Kind, id int64, props entity.Props) error
	Delete(ctx context.Context, kind entity.Kind, id int64) error
}

// Lister pages over loads.
type Lister interface {
	PageWithTotal(ctx context.Context, req listing.Request) (*listing.Result, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

const msgLoadNotFound = "No load with this load_id exists"

// Manifest strip outcomes.
const (
	stripOK       = "ok"
	stripError    = "error"
	stripOrphaned = "orphaned"
)

// Page is one page of loads.
type Page struct {
	Loads []models.Cargo
	Next  string
	Total int
}

// Service is the cargo manager. Loads are not owned; any authenticated
// subject may manage them. The carrier field is never written here except
// when the load itself is deleted.
type Service struct {
	store          Store
	lister         Lister
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracerProvider replaces the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer("marina/internal/cargo")
	}
}

func New(store Store, lister Lister, opts ...Option) *Service {
	s := &Service{
		store:  store,
		lister: lister,
		logger: slog.Default(),
		tracer: otel.Tracer("marina/internal/cargo"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new unassigned load.
func (s *Service) Create(ctx context.Context, subject string, volume float64, item, creationDate string) (_ *models.Cargo, err error) {
	defer s.observe("create", time.Now())
	ctx, span := s.tracer.Start(ctx, "cargo.Create")
	defer func() { endSpan(span, err) }()

	c := models.Cargo{Volume: volume, Item: item, CreationDate: creationDate}
	id, err := s.store.Create(ctx, entity.KindLoad, c.Props())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create load")
	}
	c.ID = entity.FormatID(id)

	s.logAudit(ctx, audit.ActionCargoCreated, subject, c.ID, "")
	if s.metrics != nil {
		s.metrics.IncrementLoadsCreated()
	}
	return &c, nil
}

func (s *Service) Get(ctx context.Context, loadID string) (_ *models.Cargo, err error) {
	defer s.observe("get", time.Now())
	ctx, span := s.tracer.Start(ctx, "cargo.Get", trace.WithAttributes(attribute.String("load_id", loadID)))
	defer func() { endSpan(span, err) }()

	_, c, err := s.fetch(ctx, loadID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns one page of all loads.
func (s *Service) List(ctx context.Context, cursor string) (_ *Page, err error) {
	defer s.observe("list", time.Now())
	ctx, span := s.tracer.Start(ctx, "cargo.List")
	defer func() { endSpan(span, err) }()

	res, err := s.lister.PageWithTotal(ctx, listing.Request{Kind: entity.KindLoad, Cursor: cursor})
	if err != nil {
		return nil, err
	}
	return &Page{
		Loads: listing.Decode(res.Entities, models.FromEntity),
		Next:  res.Next,
		Total: res.Total,
	}, nil
}

// Update replaces volume, item and creation_date, keeping the carrier.
func (s *Service) Update(ctx context.Context, subject, loadID string, volume float64, item, creationDate string) (_ *models.Cargo, err error) {
	defer s.observe("update", time.Now())
	ctx, span := s.tracer.Start(ctx, "cargo.Update", trace.WithAttributes(attribute.String("load_id", loadID)))
	defer func() { endSpan(span, err) }()

	id, c, err := s.fetch(ctx, loadID)
	if err != nil {
		return nil, err
	}
	c.Volume, c.Item, c.CreationDate = volume, item, creationDate
	return s.write(ctx, subject, id, c)
}

// Patch merges the non-nil fields of p, keeping the carrier.
func (s *Service) Patch(ctx context.Context, subject, loadID string, p models.Patch) (_ *models.Cargo, err error) {
	defer s.observe("patch", time.Now())
	ctx, span := s.tracer.Start(ctx, "cargo.Patch", trace.WithAttributes(attribute.String("load_id", loadID)))
	defer func() { endSpan(span, err) }()

	if p.Empty() {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one field is required")
	}
	id, c, err := s.fetch(ctx, loadID)
	if err != nil {
		return nil, err
	}
	c.Apply(p)
	return s.write(ctx, subject, id, c)
}

func (s *Service) write(ctx context.Context, subject string, id int64, c models.Cargo) (*models.Cargo, error) {
	if err := s.store.Update(ctx, entity.KindLoad, id, c.Props()); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, msgLoadNotFound)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update load")
	}
	s.logAudit(ctx, audit.ActionCargoUpdated, subject, c.ID, "")
	return &c, nil
}

// Delete removes the load from its carrier's manifest, then deletes the
// load. A carrier that no longer exists is skipped. If the manifest write
// fails the load is kept so the delete can be retried.
func (s *Service) Delete(ctx context.Context, subject, loadID string) (err error) {
	defer s.observe("delete", time.Now())
	ctx, span := s.tracer.Start(ctx, "cargo.Delete", trace.WithAttributes(attribute.String("load_id", loadID)))
	defer func() { endSpan(span, err) }()

	id, c, err := s.fetch(ctx, loadID)
	if err != nil {
		return err
	}
	if c.Carrier != nil {
		if err := s.stripManifest(ctx, *c.Carrier, c.ID); err != nil {
			return err
		}
	}
	if err := s.store.Delete(ctx, entity.KindLoad, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete load")
	}
	s.logAudit(ctx, audit.ActionCargoDeleted, subject, c.ID, "")
	return nil
}

func (s *Service) stripManifest(ctx context.Context, vesselID, loadID string) error {
	vid, err := entity.ParseID(vesselID)
	if err != nil {
		s.recordStrip(stripOrphaned)
		return nil
	}
	e, err := s.store.Get(ctx, entity.KindBoat, vid)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "load names a carrier that no longer exists",
			"load_id", loadID,
			"vessel_id", vesselID,
		)
		s.recordStrip(stripOrphaned)
		return nil
	}
	if err != nil {
		s.recordStrip(stripError)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load carrier")
	}

	v := vesselmodels.FromEntity(e)
	v.RemoveLoad(loadID)
	if err := s.store.Update(ctx, entity.KindBoat, vid, v.Props()); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.recordStrip(stripError)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update carrier manifest")
	}
	s.recordStrip(stripOK)
	return nil
}

func (s *Service) fetch(ctx context.Context, loadID string) (int64, models.Cargo, error) {
	id, err := entity.ParseID(loadID)
	if err != nil {
		return 0, models.Cargo{}, dErrors.New(dErrors.CodeNotFound, msgLoadNotFound)
	}
	e, err := s.store.Get(ctx, entity.KindLoad, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, models.Cargo{}, dErrors.New(dErrors.CodeNotFound, msgLoadNotFound)
		}
		return 0, models.Cargo{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cargo")
	}
	return id, models.FromEntity(e), nil
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, start)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

func (s *Service) recordStrip(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementManifestStrip(outcome)
	}
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, subject, loadID, vesselID string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:    action,
		Subject:   subject,
		Kind:      string(entity.KindLoad),
		EntityID:  loadID,
		RelatedID: vesselID,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(action),
			"load_id", loadID,
			"error", err,
		)
	}
}
