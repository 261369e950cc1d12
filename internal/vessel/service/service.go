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

	"marina/internal/access"
	"marina/internal/audit"
	"marina/internal/entity"
	"marina/internal/listing"
	"marina/internal/vessel/metrics"
	"marina/internal/vessel/models"
	dErrors "marina/pkg/domain-errors"
	"marina/pkg/platform/sentinel"
)

// Store is the part of the entity store the vessel manager uses. It reads
// and writes Load records directly for relationship edits.
type Store interface {
	Create(ctx context.Context, kind entity.Kind, props entity.Props) (int64, error)
	Get(ctx context.Context, kind entity.Kind, id int64) (entity.Entity, error)
	Update(ctx context.Context, kind entity.Kind, id int64, props entity.Props) error
	Delete(ctx context.Context, kind entity.Kind, id int64) error
	Query(ctx context.Context, q entity.Query) (entity.Page, error)
}

// Lister pages over vessels.
type Lister interface {
	PageWithTotal(ctx context.Context, req listing.Request) (*listing.Result, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

const (
	msgVesselNotFound  = "No boat with this boat_id exists"
	msgAssignMissing   = "The specified boat and/or load does not exist"
	msgAssignForbidden = "The boat is owned by someone else or the load is already loaded on another boat"
	msgNotCarried      = "No load with this load_id is at the boat with this boat_id"
)

const defaultRepairConcurrency = 4

// Page is one page of an owner's vessels.
type Page struct {
	Vessels []models.Vessel
	Next    string
	Total   int
}

// Service is the vessel manager. It is the only code path that edits the
// manifest/carrier relationship.
type Service struct {
	store             Store
	lister            Lister
	logger            *slog.Logger
	auditPublisher    AuditPublisher
	metrics           *metrics.Metrics
	tracer            trace.Tracer
	repairConcurrency int
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

// WithRepairConcurrency bounds how many carrier repairs a vessel delete runs
// at once.
func WithRepairConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.repairConcurrency = n
		}
	}
}

// New constructs the vessel manager.
func New(store Store, lister Lister, opts ...Option) *Service {
	s := &Service{
		store:             store,
		lister:            lister,
		logger:            slog.Default(),
		tracer:            otel.Tracer("marina/internal/vessel"),
		repairConcurrency: defaultRepairConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new vessel owned by subject with an empty manifest.
func (s *Service) Create(ctx context.Context, subject, name, vesselType string, length float64) (_ *models.Vessel, err error) {
	defer s.observe("create", time.Now())
	ctx, span := s.tracer.Start(ctx, "vessel.Create")
	defer func() { endSpan(span, err) }()

	v := models.Vessel{Owner: subject, Name: name, Type: vesselType, Length: length, Loads: []string{}}
	id, err := s.store.Create(ctx, entity.KindBoat, v.Props())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create boat")
	}
	v.ID = entity.FormatID(id)

	s.logAudit(ctx, audit.ActionVesselCreated, subject, v.ID, "")
	if s.metrics != nil {
		s.metrics.IncrementVesselsCreated()
	}
	return &v, nil
}

// Get returns a vessel owned by subject.
func (s *Service) Get(ctx context.Context, subject, vesselID string) (_ *models.Vessel, err error) {
	defer s.observe("get", time.Now())
	ctx, span := s.tracer.Start(ctx, "vessel.Get", trace.WithAttributes(attribute.String("vessel_id", vesselID)))
	defer func() { endSpan(span, err) }()

	_, v, err := s.fetchOwned(ctx, subject, vesselID)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByOwner returns one page of subject's vessels and the total they own.
func (s *Service) ListByOwner(ctx context.Context, subject, cursor string) (_ *Page, err error) {
	defer s.observe("list", time.Now())
	ctx, span := s.tracer.Start(ctx, "vessel.ListByOwner")
	defer func() { endSpan(span, err) }()

	res, err := s.lister.PageWithTotal(ctx, listing.Request{
		Kind:   entity.KindBoat,
		Filter: &entity.Filter{Field: models.FieldOwner, Value: subject},
		Cursor: cursor,
	})
	if err != nil {
		return nil, err
	}
	return &Page{
		Vessels: listing.Decode(res.Entities, models.FromEntity),
		Next:    res.Next,
		Total:   res.Total,
	}, nil
}

// Update replaces name, type and length. Owner and manifest are kept from the
// record read immediately before the write; a concurrent assign between the
// read and the write is lost.
func (s *Service) Update(ctx context.Context, subject, vesselID, name, vesselType string, length float64) (_ *models.Vessel, err error) {
	defer s.observe("update", time.Now())
	ctx, span := s.tracer.Start(ctx, "vessel.Update", trace.WithAttributes(attribute.String("vessel_id", vesselID)))
	defer func() { endSpan(span, err) }()

	id, v, err := s.fetchOwned(ctx, subject, vesselID)
	if err != nil {
		return nil, err
	}
	v.Name, v.Type, v.Length = name, vesselType, length
	return s.write(ctx, subject, id, v)
}

// Patch merges the non-nil fields of p onto the current record.
func (s *Service) Patch(ctx context.Context, subject, vesselID string, p models.Patch) (_ *models.Vessel, err error) {
	defer s.observe("patch", time.Now())
	ctx, span := s.tracer.Start(ctx, "vessel.Patch", trace.WithAttributes(attribute.String("vessel_id", vesselID)))
	defer func() { endSpan(span, err) }()

	if p.Empty() {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one field is required")
	}
	id, v, err := s.fetchOwned(ctx, subject, vesselID)
	if err != nil {
		return nil, err
	}
	v.Apply(p)
	return s.write(ctx, subject, id, v)
}

func (s *Service) write(ctx context.Context, subject string, id int64, v models.Vessel) (*models.Vessel, error) {
	if err := s.store.Update(ctx, entity.KindBoat, id, v.Props()); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, msgVesselNotFound)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update boat")
	}
	s.logAudit(ctx, audit.ActionVesselUpdated, subject, v.ID, "")
	return &v, nil
}

// Delete removes the vessel, then clears the carrier of every load that
// names it. The loads are found by querying carrier, not by reading the
// manifest. Repairs run concurrently; if any fail the first error is
// returned once all of them have finished, and the vessel stays deleted.
func (s *Service) Delete(ctx context.Context, subject, vesselID string) (err error) {
	defer s.observe("delete", time.Now())
	ctx, span := s.tracer.Start(ctx, "vessel.Delete", trace.WithAttributes(attribute.String("vessel_id", vesselID)))
	defer func() { endSpan(span, err) }()

	id, v, err := s.fetchOwned(ctx, subject, vesselID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, entity.KindBoat, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete boat")
	}
	s.logAudit(ctx, audit.ActionVesselDeleted, subject, v.ID, "")

	if err := s.repairCarriers(ctx, subject, v.ID); err != nil {
		s.logger.ErrorContext(ctx, "boat deleted but carrier repair incomplete",
			"vessel_id", v.ID,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to unload boat")
	}
	return nil
}

// AssignLoad puts a load on a vessel. Writes are ordered load first, then
// vessel. A failure between them leaves the carrier set with the manifest
// not yet updated.
func (s *Service) AssignLoad(ctx context.Context, subject, vesselID, loadID string) (err error) {
	defer s.observe("assign", time.Now())
	ctx, span := s.tracer.Start(ctx, "vessel.AssignLoad", trace.WithAttributes(
		attribute.String("vessel_id", vesselID),
		attribute.String("load_id", loadID),
	))
	defer func() { endSpan(span, err) }()

	vid, v, err := s.fetchVessel(ctx, vesselID, msgAssignMissing)
	if err != nil {
		return err
	}
	if v.Owner != subject {
		return dErrors.New(dErrors.CodeForbidden, msgAssignForbidden)
	}
	lid, load, err := s.fetchLoad(ctx, loadID, msgAssignMissing)
	if err != nil {
		return err
	}
	if load.CarriedBy(v.ID) {
		return nil
	}
	if load.Carrier != nil {
		return dErrors.New(dErrors.CodeConflict, msgAssignForbidden)
	}

	load.Carrier = &v.ID
	if err := s.store.Update(ctx, entity.KindLoad, lid, load.Props()); err != nil {
		s.recordRelationshipWrite("assign", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set load carrier")
	}
	if !v.Carries(load.ID) {
		v.Loads = append(v.Loads, load.ID)
	}
	if err := s.store.Update(ctx, entity.KindBoat, vid, v.Props()); err != nil {
		s.logger.ErrorContext(ctx, "load carrier set but manifest not updated",
			"vessel_id", v.ID,
			"load_id", load.ID,
			"error", err,
		)
		s.recordRelationshipWrite("assign", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update boat manifest")
	}

	s.recordRelationshipWrite("assign", nil)
	s.logAudit(ctx, audit.ActionLoadAssigned, subject, v.ID, load.ID)
	return nil
}

// UnassignLoad takes a load off a vessel, clearing the carrier before
// removing the id from the manifest.
func (s *Service) UnassignLoad(ctx context.Context, subject, vesselID, loadID string) (err error) {
	defer s.observe("unassign", time.Now())
	ctx, span := s.tracer.Start(ctx, "vessel.UnassignLoad", trace.WithAttributes(
		attribute.String("vessel_id", vesselID),
		attribute.String("load_id", loadID),
	))
	defer func() { endSpan(span, err) }()

	vid, v, err := s.fetchVessel(ctx, vesselID, msgNotCarried)
	if err != nil {
		return err
	}
	if err := access.EnsureOwner(v.Owner, subject); err != nil {
		return err
	}
	lid, load, err := s.fetchLoad(ctx, loadID, msgNotCarried)
	if err != nil {
		return err
	}
	if !load.CarriedBy(v.ID) {
		return dErrors.New(dErrors.CodeNotFound, msgNotCarried)
	}

	load.Carrier = nil
	if err := s.store.Update(ctx, entity.KindLoad, lid, load.Props()); err != nil {
		s.recordRelationshipWrite("unassign", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear load carrier")
	}
	v.RemoveLoad(load.ID)
	if err := s.store.Update(ctx, entity.KindBoat, vid, v.Props()); err != nil {
		s.logger.ErrorContext(ctx, "load carrier cleared but manifest not updated",
			"vessel_id", v.ID,
			"load_id", load.ID,
			"error", err,
		)
		s.recordRelationshipWrite("unassign", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update boat manifest")
	}

	s.recordRelationshipWrite("unassign", nil)
	s.logAudit(ctx, audit.ActionLoadUnassigned, subject, v.ID, load.ID)
	return nil
}

func (s *Service) fetchOwned(ctx context.Context, subject, vesselID string) (int64, models.Vessel, error) {
	id, v, err := s.fetchVessel(ctx, vesselID, msgVesselNotFound)
	if err != nil {
		return 0, models.Vessel{}, err
	}
	if err := access.EnsureOwner(v.Owner, subject); err != nil {
		return 0, models.Vessel{}, err
	}
	return id, v, nil
}

func (s *Service) fetchVessel(ctx context.Context, vesselID, notFound string) (int64, models.Vessel, error) {
	id, err := entity.ParseID(vesselID)
	if err != nil {
		return 0, models.Vessel{}, dErrors.New(dErrors.CodeNotFound, notFound)
	}
	e, err := s.store.Get(ctx, entity.KindBoat, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, models.Vessel{}, dErrors.New(dErrors.CodeNotFound, notFound)
		}
		return 0, models.Vessel{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load boat")
	}
	return id, models.FromEntity(e), nil
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, subject, vesselID, loadID string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:    action,
		Subject:   subject,
		Kind:      string(entity.KindBoat),
		EntityID:  vesselID,
		RelatedID: loadID,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(action),
			"vessel_id", vesselID,
			"error", err,
		)
	}
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, start)
	}
}

func (s *Service) recordRelationshipWrite(op string, err error) {
	if s.metrics != nil {
		s.metrics.IncrementRelationshipWrite(op, err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}
