package utils

import "github.com/google/uuid"

// NewID returns a random connection or order identifier.
func NewID() string {
	return uuid.NewString()
}
