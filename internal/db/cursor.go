package db

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
)

// Cursor is the decoded form of a continuation token: an offset into the
// ordered result of one query. The fingerprint ties a token to the query
// that produced it.
type Cursor struct {
	Offset      int    `json:"o"`
	Fingerprint string `json:"f"`
}

// Fingerprint hashes the parts that define a query's result order.
func Fingerprint(parts ...string) string {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 36)
}

// EncodeCursor renders an opaque token.
func EncodeCursor(offset int, fingerprint string) string {
	raw, _ := json.Marshal(Cursor{Offset: offset, Fingerprint: fingerprint})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses token, which must have been issued for fingerprint.
// An empty token starts at offset 0.
func DecodeCursor(token, fingerprint string) (int, error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("%w: not base64", ErrInvalidCursor)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return 0, fmt.Errorf("%w: malformed", ErrInvalidCursor)
	}
	if c.Offset < 0 {
		return 0, fmt.Errorf("%w: negative offset", ErrInvalidCursor)
	}
	if c.Fingerprint != fingerprint {
		return 0, fmt.Errorf("%w: issued for a different query", ErrInvalidCursor)
	}
	return c.Offset, nil
}

// NextCursor returns the token following a page of n items starting at
// offset, or "" when no further items exist. Stores probe one row past the
// page to learn more.
func NextCursor(offset, n int, more bool, fingerprint string) string {
	if !more {
		return ""
	}
	return EncodeCursor(offset+n, fingerprint)
}
