package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"marina/internal/cargo/models"
	"marina/internal/cargo/service"
	dErrors "marina/pkg/domain-errors"
	"marina/pkg/platform/httputil"
	"marina/pkg/platform/middleware/media"
	"marina/pkg/requestcontext"
)

// Service defines the cargo manager operations the handler calls.
type Service interface {
	Create(ctx context.Context, subject string, volume float64, item, creationDate string) (*models.Cargo, error)
	Get(ctx context.Context, loadID string) (*models.Cargo, error)
	List(ctx context.Context, cursor string) (*service.Page, error)
	Update(ctx context.Context, subject, loadID string, volume float64, item, creationDate string) (*models.Cargo, error)
	Patch(ctx context.Context, subject, loadID string, p models.Patch) (*models.Cargo, error)
	Delete(ctx context.Context, subject, loadID string) error
}

// Identifier attaches the caller's subject to the request when it carries a
// valid credential, without ever rejecting it.
type Identifier interface {
	Identify(next http.Handler) http.Handler
}

var allowedFields = []string{models.FieldVolume, models.FieldItem, models.FieldCreationDate}

// Handler serves /loads. Loads are not owned, so no credential is required;
// a valid one only names the subject in the audit trail.
type Handler struct {
	service  Service
	identity Identifier
	links    httputil.Links
	logger   *slog.Logger
}

// New builds the handler. A nil identity leaves every request anonymous.
func New(service Service, identity Identifier, links httputil.Links, logger *slog.Logger) *Handler {
	return &Handler{service: service, identity: identity, links: links, logger: logger}
}

// Register mounts the cargo endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/loads", func(r chi.Router) {
		if h.identity != nil {
			r.Use(h.identity.Identify)
		}
		r.With(media.RequireAcceptJSON).Get("/", h.HandleList)
		r.With(media.RequireJSONBody).Post("/", h.HandleCreate)
		notAllowed := httputil.MethodNotAllowed(http.MethodGet, http.MethodPost)
		r.Put("/", notAllowed)
		r.Patch("/", notAllowed)
		r.Delete("/", notAllowed)

		r.With(media.RequireAcceptJSON).Get("/{load_id}", h.HandleGet)
		r.With(media.RequireJSONBody).Put("/{load_id}", h.HandleUpdate)
		r.With(media.RequireJSONBody).Patch("/{load_id}", h.HandlePatch)
		r.Delete("/{load_id}", h.HandleDelete)
	})
}

// HandleCreate handles POST /loads.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := decode(r, true)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.Create(ctx, requestcontext.Subject(ctx), *p.Volume, *p.Item, *p.CreationDate)
	if err != nil {
		h.fail(w, r, "create load failed", err)
		return
	}
	h.logger.InfoContext(ctx, "load created",
		"request_id", requestcontext.RequestID(ctx),
		"load_id", c.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, h.toResponse(r, c))
}

// HandleGet handles GET /loads/{load_id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "load_id"))
	if err != nil {
		h.fail(w, r, "get load failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toResponse(r, c))
}

// HandleList handles GET /loads.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), r.URL.Query().Get("cursor"))
	if err != nil {
		h.fail(w, r, "list loads failed", err)
		return
	}
	items := make([]Response, 0, len(page.Loads))
	for i := range page.Loads {
		items = append(items, h.toResponse(r, &page.Loads[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.ListResponse[Response]{
		Items: items,
		Next:  h.links.Next(r, "loads", page.Next),
		Total: page.Total,
	})
}

// HandleUpdate handles PUT /loads/{load_id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := decode(r, true)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.Update(ctx, requestcontext.Subject(ctx), chi.URLParam(r, "load_id"), *p.Volume, *p.Item, *p.CreationDate)
	if err != nil {
		h.fail(w, r, "update load failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toResponse(r, c))
}

// HandlePatch handles PATCH /loads/{load_id}.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := decode(r, false)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.Patch(ctx, requestcontext.Subject(ctx), chi.URLParam(r, "load_id"), p)
	if err != nil {
		h.fail(w, r, "patch load failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toResponse(r, c))
}

// HandleDelete handles DELETE /loads/{load_id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Delete(ctx, requestcontext.Subject(ctx), chi.URLParam(r, "load_id")); err != nil {
		h.fail(w, r, "delete load failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"load_id", chi.URLParam(r, "load_id"),
		"error", err,
	)
	httputil.WriteError(w, err)
}

// decode reads a cargo body. With full, every field is required.
func decode(r *http.Request, full bool) (models.Patch, error) {
	fields, err := httputil.DecodeFields(r, allowedFields, full)
	if err != nil {
		return models.Patch{}, err
	}
	var p models.Patch
	if p.Volume, err = fields.Number(models.FieldVolume); err != nil {
		return models.Patch{}, err
	}
	if p.Item, err = fields.Text(models.FieldItem); err != nil {
		return models.Patch{}, err
	}
	if p.CreationDate, err = fields.Text(models.FieldCreationDate); err != nil {
		return models.Patch{}, err
	}
	if p.Empty() {
		return models.Patch{}, dErrors.New(dErrors.CodeBadRequest, httputil.MsgAttributeMismatch)
	}
	return p, nil
}

// Response is the JSON form of a load. Carrier is null when unassigned.
type Response struct {
	ID           string        `json:"id"`
	Volume       float64       `json:"volume"`
	Item         string        `json:"item"`
	CreationDate string        `json:"creation_date"`
	Carrier      *httputil.Ref `json:"carrier"`
	Self         string        `json:"self"`
}

func (h *Handler) toResponse(r *http.Request, c *models.Cargo) Response {
	resp := Response{
		ID:           c.ID,
		Volume:       c.Volume,
		Item:         c.Item,
		CreationDate: c.CreationDate,
		Self:         h.links.Self(r, "loads", c.ID),
	}
	if c.Carrier != nil {
		ref := h.links.Ref(r, "boats", *c.Carrier)
		resp.Carrier = &ref
	}
	return resp
}
