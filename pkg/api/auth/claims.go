// Package auth provides JWT authentication for the VaultFS API.
package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/marmos91/vaultfs/pkg/catalog"
)

// TokenType indicates whether a token is an access token or refresh token.
type TokenType string

const (
	// TokenTypeAccess is a short-lived token used for API authorization.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh is a long-lived token used to obtain new access tokens.
	TokenTypeRefresh TokenType = "refresh"
)

// Role grades what a user may do across the catalog. Roles are global:
// volume-scoped grants are not modelled, the authorizer answers the same
// way for every volume.
type Role string

const (
	// RoleAdmin may view, edit and delete.
	RoleAdmin Role = "admin"
	// RoleEditor may view and edit but not delete.
	RoleEditor Role = "editor"
	// RoleViewer may only view.
	RoleViewer Role = "viewer"
)

// Valid reports whether the role is one of the known grades.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Allows reports whether the role grants a catalog permission.
func (r Role) Allows(permission string) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleEditor:
		return permission == catalog.PermissionView || permission == catalog.PermissionEdit
	case RoleViewer:
		return permission == catalog.PermissionView
	}
	return false
}

// Claims represents JWT claims for VaultFS authentication.
type Claims struct {
	jwt.RegisteredClaims

	// Username is the human-readable username.
	Username string `json:"username"`

	// Role is the user's access grade ("admin", "editor" or "viewer").
	Role Role `json:"role"`

	// TokenType indicates whether this is an access or refresh token.
	TokenType TokenType `json:"token_type"`
}

// IsAccessToken returns true if this is an access token.
func (c *Claims) IsAccessToken() bool {
	return c.TokenType == TokenTypeAccess
}

// IsRefreshToken returns true if this is a refresh token.
func (c *Claims) IsRefreshToken() bool {
	return c.TokenType == TokenTypeRefresh
}

// IsAdmin returns true if the user has the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
