package entity

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"marina/pkg/platform/sentinel"
)

const cursorPrefix = "after:"

// encodeCursor builds the keyset cursor shared by the memory, Postgres and
// Redis backends: the last id returned, opaque to callers.
func encodeCursor(lastID int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.FormatInt(lastID, 10)))
}

func decodeCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("decode cursor: %w", sentinel.ErrInvalidCursor)
	}
	s, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, fmt.Errorf("decode cursor: %w", sentinel.ErrInvalidCursor)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("decode cursor: %w", sentinel.ErrInvalidCursor)
	}
	return id, nil
}
