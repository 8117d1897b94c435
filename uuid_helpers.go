package auth

import "github.com/google/uuid"

// newTokenID returns a random jti for freshly minted claims.
func newTokenID() string {
	return uuid.NewString()
}

// isUUID reports whether the value parses as a UUID.
func isUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
