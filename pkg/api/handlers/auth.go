package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/marmos91/vaultfs/pkg/api/auth"
	"github.com/marmos91/vaultfs/pkg/api/middleware"
)

// AuthHandler handles authentication-related API endpoints.
type AuthHandler struct {
	users      *auth.Directory
	jwtService *auth.JWTService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users *auth.Directory, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		users:      users,
		jwtService: jwtService,
	}
}

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the response body for POST /api/v1/auth/login.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	Username     string    `json:"username"`
	Role         auth.Role `json:"role"`
}

// RefreshRequest is the request body for POST /api/v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login handles POST /api/v1/auth/login.
// Authenticates user credentials and returns a JWT token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		BadRequest(w, "Username and password are required")
		return
	}

	user, err := h.users.ValidateCredentials(req.Username, req.Password)
	if err != nil {
		Unauthorized(w, "Invalid username or password")
		return
	}

	tokenPair, err := h.jwtService.GenerateTokenPair(user.Username, user.Role)
	if err != nil {
		InternalServerError(w, "Failed to generate token")
		return
	}

	WriteJSONOK(w, LoginResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		TokenType:    tokenPair.TokenType,
		ExpiresIn:    tokenPair.ExpiresIn,
		ExpiresAt:    tokenPair.ExpiresAt,
		Username:     user.Username,
		Role:         user.Role,
	})
}

// Refresh handles POST /api/v1/auth/refresh.
// Returns a new token pair using a valid refresh token. The role on the
// new pair is read from the directory, so a config change takes effect on
// the next refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.RefreshToken == "" {
		BadRequest(w, "Refresh token is required")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			Unauthorized(w, "Refresh token has expired")
			return
		}
		Unauthorized(w, "Invalid refresh token")
		return
	}

	user, err := h.users.Lookup(claims.Username)
	if err != nil {
		Unauthorized(w, "User not found")
		return
	}

	tokenPair, err := h.jwtService.GenerateTokenPair(user.Username, user.Role)
	if err != nil {
		InternalServerError(w, "Failed to generate token")
		return
	}

	WriteJSONOK(w, LoginResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		TokenType:    tokenPair.TokenType,
		ExpiresIn:    tokenPair.ExpiresIn,
		ExpiresAt:    tokenPair.ExpiresAt,
		Username:     user.Username,
		Role:         user.Role,
	})
}

// MeResponse is the response body for GET /api/v1/auth/me.
type MeResponse struct {
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
}

// Me handles GET /api/v1/auth/me.
// Returns the identity of the authenticated caller.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	WriteJSONOK(w, MeResponse{
		Username: claims.Username,
		Role:     claims.Role,
	})
}
