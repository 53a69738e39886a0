package api

import (
	"context"

	"github.com/marmos91/vaultfs/pkg/api/middleware"
	"github.com/marmos91/vaultfs/pkg/catalog"
)

// ClaimsAuthorizer answers catalog permission checks from the JWT claims
// carried in the request context. Contexts without claims are denied, so
// the catalog guards fail closed if a route ever skips authentication.
//
// Wire it into the catalog service when the service is shared with the
// API; callers outside the HTTP path are unaffected because the guards
// are opt-in.
type ClaimsAuthorizer struct{}

var _ catalog.Authorizer = ClaimsAuthorizer{}

// CheckPermission reports whether the authenticated role grants the
// permission. The volume id is ignored: roles are global.
func (ClaimsAuthorizer) CheckPermission(ctx context.Context, permission, volumeID string) (bool, error) {
	claims := middleware.GetClaimsFromContext(ctx)
	if claims == nil {
		return false, nil
	}
	return claims.Role.Allows(permission), nil
}
