package history

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Cursor carries pagination state between calls. Clients treat the encoded
// form as opaque and round-trip it verbatim; the embedded window hash turns
// cursor reuse across different queries into a detectable validation error.
type Cursor struct {
	OffsetID     int64     `json:"offset_id"`
	OffsetDate   int64     `json:"offset_date,omitempty"`
	Direction    Direction `json:"direction"`
	FetchedCount int       `json:"fetched_count"`
	WindowHash   string    `json:"window_hash"`
}

// Encode serializes the cursor as compact JSON in URL-safe base64 without
// padding.
func (c Cursor) Encode() string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses an opaque cursor and checks it against the current
// window's hash. Every failure mode is a *ValidationError: bad base64, bad
// JSON, missing fields, or a cursor issued for a different window.
func DecodeCursor(raw string, wantHash string) (Cursor, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "=")
	data, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		return Cursor{}, &ValidationError{Field: "cursor", Reason: "not valid base64"}
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, &ValidationError{Field: "cursor", Reason: "not a valid cursor payload"}
	}
	if c.OffsetID <= 0 {
		return Cursor{}, &ValidationError{Field: "cursor", Reason: "missing offset_id"}
	}
	if c.Direction != DirectionAsc && c.Direction != DirectionDesc {
		return Cursor{}, &ValidationError{Field: "cursor", Reason: "missing direction"}
	}
	if c.FetchedCount < 0 {
		return Cursor{}, &ValidationError{Field: "cursor", Reason: "invalid fetched_count"}
	}
	if c.WindowHash == "" {
		return Cursor{}, &ValidationError{Field: "cursor", Reason: "missing window_hash"}
	}
	if c.WindowHash != wantHash {
		return Cursor{}, &ValidationError{Field: "cursor", Reason: "cursor was issued for a different query"}
	}
	return c, nil
}
