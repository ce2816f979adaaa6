package models

import "github.com/google/uuid"

// ValidID reports whether id can name a stored row. Ids that fail this
// check cannot exist, so callers treat them as not found.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
