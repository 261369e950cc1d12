package identity

import (
	"context"

	"google.golang.org/api/idtoken"

	dErrors "marina/pkg/domain-errors"
)

// validateFunc matches idtoken.Validate so tests can substitute it.
type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleVerifier validates Google-issued ID tokens for the configured OAuth
// client and returns the token's sub claim.
type GoogleVerifier struct {
	clientID string
	validate validateFunc
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string) (string, error) {
	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
	if payload.Subject == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return payload.Subject, nil
}
