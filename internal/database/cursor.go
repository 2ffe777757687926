// internal/database/cursor.go
package database

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	custom_errors "githop/internal/errors"
)

// RepoCursor marks the last repository of a page sorted by stars descending.
type RepoCursor struct {
	Stars int   `json:"stars"`
	ID    int64 `json:"id"`
}

// DeveloperCursor marks the last developer of a page sorted by followers descending.
type DeveloperCursor struct {
	Followers int   `json:"followers"`
	ID        int64 `json:"id"`
}

// EncodeCursor returns the opaque base64url form of c.
func EncodeCursor(c any) string {
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(s string, v any) error {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if s == "" {
		return custom_errors.ErrInvalidCursor
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		// Older clients send standard base64.
		if raw, err = base64.RawStdEncoding.DecodeString(s); err != nil {
			return custom_errors.ErrInvalidCursor
		}
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return custom_errors.ErrInvalidCursor
	}
	return nil
}

// DecodeRepoCursor parses a cursor produced by EncodeCursor(RepoCursor{...}).
func DecodeRepoCursor(s string) (*RepoCursor, error) {
	var c RepoCursor
	if err := decodeCursor(s, &c); err != nil {
		return nil, err
	}
	if c.ID <= 0 || c.Stars < 0 {
		return nil, custom_errors.ErrInvalidCursor
	}
	return &c, nil
}

// DecodeDeveloperCursor parses a cursor produced by EncodeCursor(DeveloperCursor{...}).
func DecodeDeveloperCursor(s string) (*DeveloperCursor, error) {
	var c DeveloperCursor
	if err := decodeCursor(s, &c); err != nil {
		return nil, err
	}
	if c.ID <= 0 || c.Followers < 0 {
		return nil, custom_errors.ErrInvalidCursor
	}
	return &c, nil
}
