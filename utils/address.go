package utils

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// IsValidAddress reports whether s is a base58-encoded 32-byte address.
func IsValidAddress(s string) bool {
	decoded, err := base58.Decode(s)
	return err == nil && len(decoded) == 32
}

// ShortAddress abbreviates an address for log output.
func ShortAddress(s string) string {
	if len(s) <= 8 {
		return s
	}
	return fmt.Sprintf("%s..%s", s[:4], s[len(s)-4:])
}
