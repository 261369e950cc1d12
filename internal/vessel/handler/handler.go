package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"marina/internal/vessel/models"
	"marina/internal/vessel/service"
	"marina/pkg/platform/httputil"
	"marina/pkg/platform/middleware/media"
	"marina/pkg/requestcontext"
)

// Service defines the vessel manager operations the handler calls.
type Service interface {
	Create(ctx context.Context, subject, name, vesselType string, length float64) (*models.Vessel, error)
	Get(ctx context.Context, subject, vesselID string) (*models.Vessel, error)
	ListByOwner(ctx context.Context, subject, cursor string) (*service.Page, error)
	Update(ctx context.Context, subject, vesselID, name, vesselType string, length float64) (*models.Vessel, error)
	Patch(ctx context.Context, subject, vesselID string, p models.Patch) (*models.Vessel, error)
	Delete(ctx context.Context, subject, vesselID string) error
	AssignLoad(ctx context.Context, subject, vesselID, loadID string) error
	UnassignLoad(ctx context.Context, subject, vesselID, loadID string) error
}

// Authenticator resolves the subject of an Authorization header.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (string, error)
}

// Handler serves /boats.
type Handler struct {
	service Service
	gate    Authenticator
	links   httputil.Links
	logger  *slog.Logger
}

func New(service Service, gate Authenticator, links httputil.Links, logger *slog.Logger) *Handler {
	return &Handler{service: service, gate: gate, links: links, logger: logger}
}

// Register mounts the vessel endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/boats", func(r chi.Router) {
		r.With(media.RequireAcceptJSON).Get("/", h.HandleList)
		r.With(media.RequireJSONBody).Post("/", h.HandleCreate)
		notAllowed := httputil.MethodNotAllowed(http.MethodGet, http.MethodPost)
		r.Put("/", notAllowed)
		r.Patch("/", notAllowed)
		r.Delete("/", notAllowed)

		r.With(media.RequireAcceptJSON).Get("/{boat_id}", h.HandleGet)
		r.With(media.RequireJSONBody).Put("/{boat_id}", h.HandleUpdate)
		r.With(media.RequireJSONBody).Patch("/{boat_id}", h.HandlePatch)
		r.Delete("/{boat_id}", h.HandleDelete)

		r.Put("/{boat_id}/loads/{load_id}", h.HandleAssign)
		r.Delete("/{boat_id}/loads/{load_id}", h.HandleUnassign)
	})
}

// HandleCreate handles POST /boats.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := decodeFull(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subject, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	v, err := h.service.Create(ctx, subject, req.Name, req.Type, req.Length)
	if err != nil {
		h.fail(w, r, "create boat failed", err)
		return
	}
	h.logger.InfoContext(ctx, "boat created",
		"request_id", requestcontext.RequestID(ctx),
		"vessel_id", v.ID,
		"subject", subject,
	)
	httputil.WriteJSON(w, http.StatusCreated, h.toResponse(r, v))
}

// HandleGet handles GET /boats/{boat_id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	v, err := h.service.Get(r.Context(), subject, chi.URLParam(r, "boat_id"))
	if err != nil {
		h.fail(w, r, "get boat failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toResponse(r, v))
}

// HandleList handles GET /boats: the caller's boats, one page at a time.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	page, err := h.service.ListByOwner(r.Context(), subject, r.URL.Query().Get("cursor"))
	if err != nil {
		h.fail(w, r, "list boats failed", err)
		return
	}
	items := make([]Response, 0, len(page.Vessels))
	for i := range page.Vessels {
		items = append(items, h.toResponse(r, &page.Vessels[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.ListResponse[Response]{
		Items: items,
		Next:  h.links.Next(r, "boats", page.Next),
		Total: page.Total,
	})
}

// HandleUpdate handles PUT /boats/{boat_id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeFull(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subject, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	v, err := h.service.Update(r.Context(), subject, chi.URLParam(r, "boat_id"), req.Name, req.Type, req.Length)
	if err != nil {
		h.fail(w, r, "update boat failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toResponse(r, v))
}

// HandlePatch handles PATCH /boats/{boat_id}.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	patch, err := decodePatch(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subject, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	v, err := h.service.Patch(r.Context(), subject, chi.URLParam(r, "boat_id"), patch)
	if err != nil {
		h.fail(w, r, "patch boat failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toResponse(r, v))
}

// HandleDelete handles DELETE /boats/{boat_id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), subject, chi.URLParam(r, "boat_id")); err != nil {
		h.fail(w, r, "delete boat failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAssign handles PUT /boats/{boat_id}/loads/{load_id}.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	err := h.service.AssignLoad(r.Context(), subject, chi.URLParam(r, "boat_id"), chi.URLParam(r, "load_id"))
	if err != nil {
		h.fail(w, r, "assign load failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUnassign handles DELETE /boats/{boat_id}/loads/{load_id}.
func (h *Handler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	err := h.service.UnassignLoad(r.Context(), subject, chi.URLParam(r, "boat_id"), chi.URLParam(r, "load_id"))
	if err != nil {
		h.fail(w, r, "unassign load failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	subject, err := h.gate.Authenticate(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return subject, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"vessel_id", chi.URLParam(r, "boat_id"),
		"error", err,
	)
	httputil.WriteError(w, err)
}
