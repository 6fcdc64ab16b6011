package gate

import (
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// TokenPrefix starts every verification token.
const TokenPrefix = "PASS_"

var tokenPattern = regexp.MustCompile(`^PASS_[0-9A-F]{8}$`)

// NewToken mints a one-time token from the first 8 hex digits of a random UUID.
// Tokens are never stored; they only prove a passing verification to the caller.
func NewToken() string {
	id := uuid.New()
	return TokenPrefix + strings.ToUpper(hex.EncodeToString(id[:4]))
}

// IsToken reports whether s has the token format.
func IsToken(s string) bool {
	return tokenPattern.MatchString(s)
}
