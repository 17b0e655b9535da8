// Package pagination implements the opaque keyset cursor used by
// listing endpoints. Tokens are base64-encoded JSON; clients treat
// them as opaque strings and pass them back verbatim.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor marks a position in a listing ordered by (updated_at DESC,
// actor_id DESC). UpdatedUnixMs carries millisecond precision so rows
// written within the same second do not straddle page boundaries. A
// zero Cursor means "from the top".
type Cursor struct {
	ActorID       uint64 `json:"actor_id"`
	UpdatedUnixMs int64  `json:"updated_unix_ms"`
}

// Encode serializes the cursor into an opaque token.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a token produced by Encode. The empty token decodes to
// the zero cursor.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, fmt.Errorf("parse cursor: %w", err)
	}
	return c, nil
}

// IsZero reports whether the cursor points at the top of the listing.
func (c Cursor) IsZero() bool {
	return c.ActorID == 0 && c.UpdatedUnixMs == 0
}
