package identity

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	usermodels "marina/internal/user/models"
	dErrors "marina/pkg/domain-errors"
	"marina/pkg/platform/httputil"
	"marina/pkg/requestcontext"
)

const stateCookie = "marina_oauth_state"

// Verifier checks the ID token returned by the exchange.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// UserRegistry registers users on their first login.
type UserRegistry interface {
	FindOrCreate(ctx context.Context, subject, firstName, lastName string) (*usermodels.User, bool, error)
}

// Handler serves the welcome page and the login flow.
type Handler struct {
	exchanger CodeExchanger
	verifier  Verifier
	users     UserRegistry
	logger    *slog.Logger
}

func NewHandler(exchanger CodeExchanger, verifier Verifier, users UserRegistry, logger *slog.Logger) *Handler {
	return &Handler{exchanger: exchanger, verifier: verifier, users: users, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleWelcome)
	r.Post("/", h.handleLogin)
	r.Get("/oauth", h.handleCallback)
}

var welcomePage = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<head><title>Marina</title></head>
<body>
<h1>Marina</h1>
<p>Sign in to obtain a token for the boats API.</p>
<form method="post" action="/"><button type="submit">Sign in</button></form>
</body>
</html>
`))

var userInfoPage = template.Must(template.New("userinfo").Parse(`<!DOCTYPE html>
<html>
<head><title>User Info</title></head>
<body>
<h1>User Info</h1>
<ul>
<li>First Name: {{.FirstName}}</li>
<li>Last Name: {{.LastName}}</li>
<li>User ID: {{.Subject}}</li>
<li>JWT: {{.Token}}</li>
</ul>
</body>
</html>
`))

func (h *Handler) handleWelcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := welcomePage.Execute(w, nil); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render welcome page", "error", err)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/oauth",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	http.Redirect(w, r, h.exchanger.AuthCodeURL(state), http.StatusFound)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "authorization code is required"))
		return
	}
	if c, err := r.Cookie(stateCookie); err != nil || c.Value != r.URL.Query().Get("state") {
		h.logger.WarnContext(ctx, "oauth state mismatch", "request_id", requestID)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "state mismatch"))
		return
	}

	profile, err := h.exchanger.Exchange(ctx, code)
	if err != nil {
		h.logger.WarnContext(ctx, "authorization code exchange failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnauthorized, "authorization failed"))
		return
	}
	subject, err := h.verifier.Verify(ctx, profile.IDToken)
	if err != nil {
		h.logger.WarnContext(ctx, "issued id token rejected", "error", err, "request_id", requestID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnauthorized, "authorization failed"))
		return
	}

	_, created, err := h.users.FindOrCreate(ctx, subject, profile.FirstName, profile.LastName)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to register user", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err = userInfoPage.Execute(w, struct {
		FirstName, LastName, Subject, Token string
	}{profile.FirstName, profile.LastName, subject, profile.IDToken})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to render user info", "error", err, "request_id", requestID)
	}
}
