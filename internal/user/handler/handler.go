package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"marina/internal/user/models"
	"marina/internal/user/service"
	"marina/pkg/platform/httputil"
	"marina/pkg/platform/middleware/media"
	"marina/pkg/requestcontext"
)

// Service lists registered users.
type Service interface {
	List(ctx context.Context, cursor string) (*service.Page, error)
}

// Handler serves the read-only /users collection.
type Handler struct {
	service Service
	links   httputil.Links
	logger  *slog.Logger
}

func New(service Service, links httputil.Links, logger *slog.Logger) *Handler {
	return &Handler{service: service, links: links, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.With(media.RequireAcceptJSON).Get("/", h.HandleList)
		notAllowed := httputil.MethodNotAllowed(http.MethodGet)
		r.Post("/", notAllowed)
		r.Put("/", notAllowed)
		r.Patch("/", notAllowed)
		r.Delete("/", notAllowed)
	})
}

// Response is the JSON form of a user.
type Response struct {
	models.User
	Self string `json:"self"`
}

// HandleList handles GET /users.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := h.service.List(ctx, r.URL.Query().Get("cursor"))
	if err != nil {
		h.logger.WarnContext(ctx, "list users failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	items := make([]Response, 0, len(page.Users))
	for _, u := range page.Users {
		items = append(items, Response{User: u, Self: h.links.Self(r, "users", u.ID)})
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.ListResponse[Response]{
		Items: items,
		Next:  h.links.Next(r, "users", page.Next),
		Total: page.Total,
	})
}
