package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/middleware"
	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/utils"
)

// RegisterRequest is the request body for POST /api/v1/auth/register
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest is the request body for POST /api/v1/auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of a user account
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LoginResponse is the response body for a successful login
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// AccountService defines the authentication operations the handler needs
type AccountService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, *models.User, error)
}

// AuthHandler handles account registration and login
type AuthHandler struct {
	service  AccountService
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AccountService, tokenTTL time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// HandleRegister handles POST /api/v1/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse register request", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))

	_ = utils.WriteCreated(w, userResponse(user))
}

// HandleLogin handles POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse login request", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	// Cookie mirrors the token so browser clients don't need to manage headers
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.tokenTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	_ = utils.WriteOK(w, LoginResponse{
		Token: token,
		User:  userResponse(user),
	})
}

// HandleCurrentUser handles GET /api/v1/auth/me
func (h *AuthHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.GetOwnerIDFromContext(ctx)
	if ownerID == "" {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	_ = utils.WriteOK(w, map[string]string{
		"id":       ownerID,
		"username": middleware.GetUsernameFromContext(ctx),
	})
}

func userResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	}
}
