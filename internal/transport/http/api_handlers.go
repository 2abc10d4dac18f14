package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ordercast-server/internal/auth"
)

// APIHandlers provides HTTP handlers for authentication endpoints.
type APIHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		log:         logger,
	}
}

// RegisterRequest represents the admin registration request body.
// A store admin must be granted at least one store.
type RegisterRequest struct {
	Username   string   `json:"username" binding:"required,min=3,max=32"`
	Password   string   `json:"password" binding:"required,min=6"`
	StoreIDs   []string `json:"storeIds" binding:"dive,required"`
	SuperAdmin bool     `json:"superAdmin"`
}

// AdminResponse describes a created admin.
type AdminResponse struct {
	ID         int64    `json:"id"`
	Username   string   `json:"username"`
	StoreIDs   []string `json:"storeIds"`
	SuperAdmin bool     `json:"superAdmin"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token string `json:"token"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register creates an admin. Only superadmins reach it, so store grants are
// never taken from an anonymous caller.
// POST /api/register
func (h *APIHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if !req.SuperAdmin && len(req.StoreIDs) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "storeIds is required for store admins"})
		return
	}

	user, err := h.authService.CreateAdmin(c.Request.Context(), req.Username, req.Password, req.StoreIDs, req.SuperAdmin)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "user already exists"})
		case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Str("username", req.Username).Msg("failed to register user")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	granter, _ := principalFrom(c)
	h.log.Info().
		Str("username", user.Username).
		Strs("stores", user.StoreIDs).
		Bool("superadmin", user.SuperAdmin).
		Str("granted_by", granter.Username).
		Msg("admin registered")
	c.JSON(http.StatusCreated, AdminResponse{
		ID:         user.ID,
		Username:   user.Username,
		StoreIDs:   user.StoreIDs,
		SuperAdmin: user.SuperAdmin,
	})
}

// Login handles admin login.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to login user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("username", req.Username).Msg("admin logged in")
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}
