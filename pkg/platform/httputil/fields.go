package httputil

import (
	"encoding/json"
	"net/http"
	"slices"

	dErrors "marina/pkg/domain-errors"
)

// MsgAttributeMismatch is returned for any body that fails field validation.
const MsgAttributeMismatch = "The request attributes do not match the required attributes"

// Fields is a decoded JSON object body, keyed by attribute name.
type Fields map[string]json.RawMessage

// DecodeFields reads a JSON object from r and checks its keys against
// allowed. With requireAll the body must carry exactly the allowed set;
// otherwise it must carry at least one allowed key and nothing else.
func DecodeFields(r *http.Request, allowed []string, requireAll bool) (Fields, error) {
	var fields Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, MsgAttributeMismatch)
	}
	if requireAll && len(fields) != len(allowed) {
		return nil, dErrors.New(dErrors.CodeBadRequest, MsgAttributeMismatch)
	}
	if len(fields) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, MsgAttributeMismatch)
	}
	for key := range fields {
		if !slices.Contains(allowed, key) {
			return nil, dErrors.New(dErrors.CodeBadRequest, MsgAttributeMismatch)
		}
	}
	return fields, nil
}

// Text decodes key as a string. Absent keys yield nil.
func (f Fields) Text(key string) (*string, error) {
	return decodeField[string](f, key)
}

// Number decodes key as a JSON number. Absent keys yield nil.
func (f Fields) Number(key string) (*float64, error) {
	return decodeField[float64](f, key)
}

func decodeField[T any](f Fields, key string) (*T, error) {
	raw, ok := f[key]
	if !ok {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil || string(raw) == "null" {
		return nil, dErrors.New(dErrors.CodeBadRequest, MsgAttributeMismatch)
	}
	return &v, nil
}
