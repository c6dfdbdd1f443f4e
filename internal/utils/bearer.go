package utils

import (
	"errors"
	"strings"
)

// ParseBearerToken extracts the token string from a raw "Authorization" HTTP
// header value of the standard form:
//
//	Authorization: Bearer <token>
//
// Returns an error if the header does not contain exactly a scheme and a
// non-empty token part.
func ParseBearerToken(authorizationHeader string) (string, error) {
	parts := strings.Split(strings.TrimSpace(authorizationHeader), " ")
	if len(parts) != 2 || parts[1] == "" {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}
