package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"room-designer/internal/domain"
	"room-designer/internal/service"
)

// AuthHandler serves registration, login and the health check.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	if authService == nil {
		panic("AuthService cannot be nil for AuthHandler")
	}
	return &AuthHandler{authService: authService}
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

func authResponse(u *domain.User, token string) AuthResponse {
	return AuthResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Token: token}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Register: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "All fields are required")
		return
	}

	user, token, err := h.authService.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		logCtx := logrus.WithField("email", req.Email)
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			ErrorResponse(c, http.StatusBadRequest, "All fields are required")
		case errors.Is(err, service.ErrRegistrationFailed):
			logCtx.Warn("Handler.Register: Email already registered")
			ErrorResponse(c, http.StatusBadRequest, "Email already registered")
		default:
			logCtx.WithError(err).Error("Handler.Register: Internal error during registration")
			ErrorResponse(c, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	logrus.WithField("user_id", user.ID).Info("Handler.Register: User registered successfully")
	c.JSON(http.StatusOK, authResponse(user, token))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Login: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		logCtx := logrus.WithField("email", req.Email)
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			ErrorResponse(c, http.StatusBadRequest, "Email and password are required")
		case errors.Is(err, service.ErrAuthenticationFailed):
			logCtx.Warn("Handler.Login: Authentication failed")
			ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		default:
			logCtx.WithError(err).Error("Handler.Login: Internal error during login")
			ErrorResponse(c, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	logrus.WithField("user_id", user.ID).Info("Handler.Login: User logged in successfully")
	c.JSON(http.StatusOK, authResponse(user, token))
}

// Health handles GET /api/health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
}
