package utils

import "github.com/google/uuid"

// GenID returns a new opaque message/attachment identifier.
func GenID() string {
	return uuid.NewString()
}

// GenSessionID returns a new opaque session identifier.
func GenSessionID() string {
	return uuid.NewString()
}
