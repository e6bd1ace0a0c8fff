package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/authkit/backend/internal/model"
	"github.com/authkit/backend/internal/service"
)

type AuthHandler struct {
	auth  *service.AuthService
	reset *service.ResetService
}

func NewAuthHandler(auth *service.AuthService, reset *service.ResetService) *AuthHandler {
	return &AuthHandler{auth: auth, reset: reset}
}

// Index godoc
// @Summary Auth endpoint greeting
// @Tags auth
// @Produce plain
// @Success 200 {string} string
// @Router /auth [get]
func (h *AuthHandler) Index(c *gin.Context) {
	c.String(http.StatusOK, "Hello, this is the auth endpoint")
}

// SignUp godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.CredentialsRequest true "Email and password"
// @Success 200 {object} model.MessageResponse
// @Failure 400 {object} model.MessageResponse
// @Failure 409 {object} model.MessageResponse
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req model.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, "Invalid request body!", "error")
		return
	}

	if err := h.auth.SignUp(c.Request.Context(), req.Email, req.Password); err != nil {
		writeAuthError(c, err)
		return
	}

	writeMessage(c, http.StatusOK, "User created successfully!", "success")
}

// SignIn godoc
// @Summary Sign in with email and password
// @Description Returns an access token and sets the refreshtoken cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.CredentialsRequest true "Email and password"
// @Success 200 {object} model.SignInResponse
// @Failure 401 {object} model.MessageResponse
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req model.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, "Invalid request body!", "error")
		return
	}

	accessToken, refreshToken, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, refreshToken)
	c.JSON(http.StatusOK, model.SignInResponse{
		AccessToken: accessToken,
		Message:     "Sign in successful!",
		Type:        "success",
	})
}

// Logout godoc
// @Summary Log out
// @Description Clears the refreshtoken cookie. The stored refresh token
// @Description is left untouched; this client simply can no longer present it.
// @Tags auth
// @Produce json
// @Success 200 {object} model.MessageResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearRefreshCookie(c)
	writeMessage(c, http.StatusOK, "Logged out successfully!", "success")
}

// Refresh godoc
// @Summary Exchange the refresh cookie for a new token pair
// @Description Rotates the stored refresh token; the superseded one stops working.
// @Tags auth
// @Produce json
// @Success 200 {object} model.RefreshResponse
// @Failure 401 {object} model.MessageResponse
// @Failure 404 {object} model.MessageResponse
// @Router /auth/refresh_token [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	presented, _ := c.Cookie(h.auth.CookieConfig().Name)

	accessToken, refreshToken, err := h.auth.Refresh(c.Request.Context(), presented)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, refreshToken)
	c.JSON(http.StatusOK, model.RefreshResponse{
		AccessToken: accessToken,
		Message:     "Refreshed successfully!",
		Type:        "success",
	})
}

// Protected godoc
// @Summary Return the authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ProtectedResponse
// @Failure 401 {object} model.MessageResponse
// @Failure 404 {object} model.MessageResponse
// @Router /auth/protected [get]
func (h *AuthHandler) Protected(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		writeMessage(c, http.StatusUnauthorized, "You are not logged in!", "error")
		return
	}

	c.JSON(http.StatusOK, model.ProtectedResponse{
		User:    user,
		Message: "You are logged in!",
		Type:    "success",
	})
}

// SendPasswordResetEmail godoc
// @Summary Email a password-reset link
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.ResetRequest true "Account email"
// @Success 200 {object} model.MessageResponse
// @Failure 404 {object} model.MessageResponse
// @Failure 502 {object} model.MessageResponse
// @Router /auth/send-password-reset-email [post]
func (h *AuthHandler) SendPasswordResetEmail(c *gin.Context) {
	var req model.ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, "Invalid request body!", "error")
		return
	}

	if err := h.reset.RequestReset(c.Request.Context(), req.Email); err != nil {
		writeAuthError(c, err)
		return
	}

	writeMessage(c, http.StatusOK, "Password reset link has been sent to your email!", "success")
}

// ResetPassword godoc
// @Summary Confirm a password reset
// @Description Verifies the emailed token against the still-current password hash.
// @Tags auth
// @Accept json
// @Produce json
// @Param id path string true "User id"
// @Param token path string true "Reset token"
// @Param request body model.ResetConfirmRequest true "New password"
// @Success 200 {object} model.MessageResponse
// @Failure 400 {object} model.MessageResponse
// @Failure 401 {object} model.MessageResponse
// @Failure 404 {object} model.MessageResponse
// @Failure 502 {object} model.MessageResponse
// @Router /auth/reset-password/{id}/{token} [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeMessage(c, http.StatusNotFound, "User doesn't exist!", "error")
		return
	}

	var req model.ResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, "Invalid request body!", "error")
		return
	}

	if err := h.reset.ConfirmReset(c.Request.Context(), userID, c.Param("token"), req.NewPassword); err != nil {
		writeAuthError(c, err)
		return
	}

	writeMessage(c, http.StatusOK, "Password reset successful!", "success")
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	cfg := h.auth.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, token, cfg.MaxAge, cfg.Path, cfg.Domain, cfg.Secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	cfg := h.auth.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, "", -1, cfg.Path, cfg.Domain, cfg.Secure, true)
}

func writeMessage(c *gin.Context, status int, message, msgType string) {
	c.JSON(status, model.MessageResponse{Message: message, Type: msgType})
}

func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeMessage(c, http.StatusBadRequest, "Invalid input!", "error")
	case errors.Is(err, service.ErrUserExists):
		writeMessage(c, http.StatusConflict, "User already exists! Try logging in.", "warning")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeMessage(c, http.StatusUnauthorized, "Invalid credentials!", "error")
	case errors.Is(err, service.ErrMissingToken):
		writeMessage(c, http.StatusUnauthorized, "No refresh token!", "error")
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrStaleToken):
		writeMessage(c, http.StatusUnauthorized, "Invalid refresh token!", "error")
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		writeMessage(c, http.StatusUnauthorized, "Invalid token!", "error")
	case errors.Is(err, service.ErrUserNotFound):
		writeMessage(c, http.StatusNotFound, "User doesn't exist!", "error")
	case errors.Is(err, service.ErrNotificationFailure):
		writeMessage(c, http.StatusBadGateway, "Error sending email!", "error")
	default:
		writeMessage(c, http.StatusInternalServerError, "Something went wrong!", "error")
	}
}
