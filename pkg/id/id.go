package id

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewID32 returns a time-ordered (UUIDv7) identifier as 32 lowercase hex
// characters. Ordering by id roughly follows creation order.
func NewID32() string {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return hex.EncodeToString(u[:])
}

// IsID32 reports whether s is exactly 32 lowercase hex characters.
func IsID32(s string) bool {
	if len(s) != 32 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// Normalize accepts either a canonical UUID or a 32-hex id and returns the
// 32-hex form. ok is false for anything else.
func Normalize(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if IsID32(s) {
		return s, true
	}
	u, err := uuid.Parse(s)
	if err != nil || len(s) != 36 {
		return "", false
	}
	return hex.EncodeToString(u[:]), true
}
