package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Entity store backends return these
// (optionally wrapped) so the managers can translate them into domain errors.
//
//   - ErrNotFound: no entity with that kind and id
//   - ErrInvalidCursor: a listing cursor the backend cannot decode
//   - ErrInvalidKey: an id that cannot name an entity (non-numeric, zero)
//   - ErrUnavailable: backend temporarily unreachable
//
// Validation of request bodies is not a store concern; use pkg/domain-errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidCursor = errors.New("invalid cursor")
	ErrInvalidKey    = errors.New("invalid key")
	ErrUnavailable   = errors.New("unavailable")
)
