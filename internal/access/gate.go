// Package access resolves the caller's identity from a bearer credential and
// enforces ownership of Vessels.
package access

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "marina/pkg/domain-errors"
	"marina/pkg/requestcontext"
)

// MsgAuthFailed is the description returned for every rejected credential.
const MsgAuthFailed = "Authentication failed. The token is missing, expired, or invalid"

// IdentityVerifier validates an identity credential and returns its subject.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Gate authenticates requests and checks ownership.
type Gate struct {
	verifier IdentityVerifier
	logger   *slog.Logger
}

func NewGate(verifier IdentityVerifier, logger *slog.Logger) *Gate {
	return &Gate{verifier: verifier, logger: logger}
}

// Authenticate resolves the subject of an Authorization header of the form
// "Bearer <token>". Any failure is Unauthorized; the verifier's reason is
// logged, not returned.
func (g *Gate) Authenticate(ctx context.Context, authorization string) (string, error) {
	token, ok := strings.CutPrefix(authorization, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		g.logger.WarnContext(ctx, "unauthorized access - missing bearer token",
			"request_id", requestcontext.RequestID(ctx),
		)
		return "", dErrors.New(dErrors.CodeUnauthorized, MsgAuthFailed)
	}

	subject, err := g.verifier.Verify(ctx, token)
	if err != nil || subject == "" {
		g.logger.WarnContext(ctx, "unauthorized access - invalid token",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return "", dErrors.New(dErrors.CodeUnauthorized, MsgAuthFailed)
	}
	return subject, nil
}

// Identify records the subject of a valid bearer token in the request
// context. It never rejects: requests without an Authorization header, or
// with one the verifier refuses, continue anonymously.
func (g *Gate) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		if subject, err := g.Authenticate(r.Context(), header); err == nil {
			r = r.WithContext(requestcontext.WithSubject(r.Context(), subject))
		}
		next.ServeHTTP(w, r)
	})
}

// EnsureOwner returns Forbidden unless subject owns the record.
func EnsureOwner(owner, subject string) error {
	if owner != subject {
		return dErrors.New(dErrors.CodeForbidden, "The boat is owned by someone else")
	}
	return nil
}
