package service

import (
	"context"
	"log/slog"

	"marina/internal/audit"
	"marina/internal/entity"
	"marina/internal/listing"
	"marina/internal/user/models"
	dErrors "marina/pkg/domain-errors"
)

// Store is the part of the entity store the user service writes through.
type Store interface {
	Create(ctx context.Context, kind entity.Kind, props entity.Props) (int64, error)
	Query(ctx context.Context, q entity.Query) (entity.Page, error)
}

// Lister pages over users.
type Lister interface {
	PageWithTotal(ctx context.Context, req listing.Request) (*listing.Result, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Page is one page of users.
type Page struct {
	Users []models.User
	Next  string
	Total int
}

// Service registers users lazily on login and lists them.
type Service struct {
	store          Store
	lister         Lister
	logger         *slog.Logger
	auditPublisher AuditPublisher
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

func New(store Store, lister Lister, opts ...Option) *Service {
	s := &Service{store: store, lister: lister, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindOrCreate returns the user registered for subject, creating it when
// absent. created reports whether this call registered it. Two concurrent
// first logins for one subject can both create a record; the store offers
// no uniqueness constraint to prevent it.
func (s *Service) FindOrCreate(ctx context.Context, subject, firstName, lastName string) (*models.User, bool, error) {
	if subject == "" {
		return nil, false, dErrors.New(dErrors.CodeValidation, "subject is required")
	}

	page, err := s.store.Query(ctx, entity.Query{
		Kind:   entity.KindUser,
		Filter: &entity.Filter{Field: models.FieldUserID, Value: subject},
		Limit:  1,
	})
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	if len(page.Entities) > 0 {
		u := models.FromEntity(page.Entities[0])
		return &u, false, nil
	}

	u := models.User{FirstName: firstName, LastName: lastName, UserID: subject}
	id, err := s.store.Create(ctx, entity.KindUser, u.Props())
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	u.ID = entity.FormatID(id)

	s.logAudit(ctx, audit.Event{Action: audit.ActionUserCreated, Subject: subject, Kind: string(entity.KindUser), EntityID: u.ID})
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID, "subject", subject)
	return &u, true, nil
}

// List returns one page of all users.
func (s *Service) List(ctx context.Context, cursor string) (*Page, error) {
	res, err := s.lister.PageWithTotal(ctx, listing.Request{Kind: entity.KindUser, Cursor: cursor})
	if err != nil {
		return nil, err
	}
	return &Page{
		Users: listing.Decode(res.Entities, models.FromEntity),
		Next:  res.Next,
		Total: res.Total,
	}, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(event.Action), "error", err)
	}
}
