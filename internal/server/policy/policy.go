// Package policy holds the ownership rule shared by every mutating post and
// reply operation.
package policy

import (
	"github.com/dmitrijs2005/postboard/internal/common"
)

// Owns reports whether actingUserID owns a resource whose owner is
// resourceOwnerID. Empty ids never match.
func Owns(resourceOwnerID, actingUserID string) bool {
	return resourceOwnerID != "" && actingUserID != "" && resourceOwnerID == actingUserID
}

// RequireOwner returns common.ErrorForbidden unless Owns holds.
func RequireOwner(resourceOwnerID, actingUserID string) error {
	if !Owns(resourceOwnerID, actingUserID) {
		return common.ErrorForbidden
	}
	return nil
}
