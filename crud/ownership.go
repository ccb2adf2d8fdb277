package crud

import (
	"conduit/errs"
)

// requireOwnership is the authorization gate for mutating article
// operations. It must run strictly after the resource has been resolved,
// so that a missing resource surfaces as ENOTFOUND rather than EFORBIDDEN.
func requireOwnership(resourceAuthorID, actingUserID int) error {
	if resourceAuthorID != actingUserID {
		return errs.Errorf(errs.EFORBIDDEN, "You must be the author of the article to do that.")
	}
	return nil
}
