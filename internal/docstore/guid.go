package docstore

import "github.com/google/uuid"

// NewGUID returns a new document identifier. Version 7 UUIDs combine a millisecond
// timestamp with random bits, so identifiers also sort by creation time.
func NewGUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
