package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auth-api/internal/domain"
	"auth-api/internal/service"
	"auth-api/internal/token"
)

// AuthHandler mantiene dependencias para los endpoints de autenticación.
type AuthHandler struct {
	logger    *zap.Logger
	authServ  *service.AuthService
	tokenServ *token.Service
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, tokenServ *token.Service) *AuthHandler {
	return &AuthHandler{
		logger:    logger,
		authServ:  authServ,
		tokenServ: tokenServ,
	}
}

// Signup maneja POST /api/auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Phone    string `json:"phone" binding:"required"`
		Address  string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		respondError(c, h.logger, bindingError(err))
		return
	}

	user, err := h.authServ.Signup(c.Request.Context(), service.SignupCommand{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Signin maneja POST /api/auth/signin.
func (h *AuthHandler) Signin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signin request", zap.Error(err))
		respondError(c, h.logger, bindingError(err))
		return
	}

	user, err := h.authServ.Signin(c.Request.Context(), service.SigninCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	accessToken, err := h.tokenServ.IssueAccess(userFromDTO(user))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "access_token": accessToken})
}

// VerifyEmail maneja GET /api/auth/verify-email?token=...
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	if err := h.authServ.VerifyEmail(c.Request.Context(), c.Query("token")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

// ResendVerification maneja POST /api/auth/resend-verification.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid resend verification request", zap.Error(err))
		respondError(c, h.logger, bindingError(err))
		return
	}

	user, err := h.authServ.ResendVerification(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"message": "Verification email resent successfully",
	})
}

// OAuthLogin maneja POST /api/auth/oauth.
func (h *AuthHandler) OAuthLogin(c *gin.Context) {
	var req struct {
		Provider    string  `json:"provider" binding:"required"`
		ID          string  `json:"id" binding:"required"`
		DisplayName string  `json:"display_name" binding:"required"`
		Email       *string `json:"email" binding:"omitempty,email"`
		ImageURL    *string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid oauth request", zap.Error(err))
		respondError(c, h.logger, bindingError(err))
		return
	}

	user, err := h.authServ.OAuthLogin(c.Request.Context(), service.OAuthCommand{
		Provider:       req.Provider,
		ProviderUserID: req.ID,
		DisplayName:    req.DisplayName,
		Email:          req.Email,
		ImageURL:       req.ImageURL,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	accessToken, err := h.tokenServ.IssueAccess(userFromDTO(user))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "access_token": accessToken})
}

// Me maneja GET /api/auth/me (requiere bearer token).
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "missing token"}})
		return
	}

	user, err := h.authServ.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func userFromDTO(dto domain.UserDTO) domain.User {
	return domain.User{ID: dto.ID, Name: dto.Name, Email: dto.Email}
}
