package auth

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// EncodeUID renders a user id for use as a URL path segment
func EncodeUID(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID))
}

// DecodeUID reverses EncodeUID and rejects anything that is not a user id
func DecodeUID(uid string) (string, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(string(raw))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
