package http

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vidtube/internal/domain"
	"vidtube/internal/service"
)

// UserHandler mantiene dependencias para endpoints de usuarios.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	tokens   *service.TokenService
	cookies  *CookieHelper
	tempDir  string
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, tokens *service.TokenService, cookies *CookieHelper, tempDir string) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
		tokens:   tokens,
		cookies:  cookies,
		tempDir:  tempDir,
	}
}

// Register maneja POST /users/register (multipart con avatar y coverImage).
func (h *UserHandler) Register(c *gin.Context) {
	fullname := c.PostForm("fullname")
	email := c.PostForm("email")
	password := c.PostForm("password")
	username := c.PostForm("username")

	avatarPath, err := h.saveTemp(c, "avatar")
	if err != nil {
		h.logger.Warn("saving avatar temp file failed", zap.Error(err))
		respondError(c, http.StatusBadRequest, "could not receive avatar file")
		return
	}
	coverPath, err := h.saveTemp(c, "coverImage")
	if err != nil {
		h.logger.Warn("saving cover temp file failed", zap.Error(err))
		coverPath = ""
	}

	user, err := h.userServ.Register(c.Request.Context(), service.RegisterInput{
		Fullname:   fullname,
		Email:      email,
		Password:   password,
		Username:   username,
		AvatarPath: avatarPath,
		CoverPath:  coverPath,
	})
	if err != nil {
		h.handleServiceError(c, err, "register failed")
		return
	}

	respond(c, http.StatusCreated, user, "user created successfully")
}

// Login maneja POST /users/login. Requiere email, username y password.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		respondError(c, http.StatusBadRequest, "email, username and password are required")
		return
	}

	user, pair, err := h.userServ.Login(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		h.handleServiceError(c, err, "login failed")
		return
	}

	h.cookies.SetAuthCookies(c, pair.AccessToken, pair.RefreshToken, h.tokens.AccessTTL(), h.tokens.RefreshTTL())
	respond(c, http.StatusOK, gin.H{"user": user, "tokens": pair}, "logged in successfully")
}

// Logout maneja POST /users/logout. Requiere autenticación previa.
func (h *UserHandler) Logout(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if err := h.userServ.Logout(c.Request.Context(), claims.UserID); err != nil {
		h.handleServiceError(c, err, "logout failed")
		return
	}

	h.cookies.ClearAuthCookies(c)
	respond(c, http.StatusOK, nil, "logged out successfully")
}

// RefreshToken maneja POST /users/refresh-token: canjea el refresh
// token (cookie o body) por un par nuevo.
func (h *UserHandler) RefreshToken(c *gin.Context) {
	presented := h.cookies.GetRefreshToken(c)
	if presented == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.ShouldBindJSON(&req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		respondError(c, http.StatusUnauthorized, "refresh token is required")
		return
	}

	user, pair, err := h.userServ.Refresh(c.Request.Context(), presented)
	if err != nil {
		h.handleServiceError(c, err, "token refresh failed")
		return
	}

	h.cookies.SetAuthCookies(c, pair.AccessToken, pair.RefreshToken, h.tokens.AccessTTL(), h.tokens.RefreshTTL())
	respond(c, http.StatusOK, gin.H{"user": user, "tokens": pair}, "access token refreshed")
}

// CurrentUser maneja GET /users/current-user.
func (h *UserHandler) CurrentUser(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized request")
		return
	}

	user, err := h.userServ.CurrentUser(c.Request.Context(), claims.UserID)
	if err != nil {
		h.handleServiceError(c, err, "fetch current user failed")
		return
	}
	respond(c, http.StatusOK, user, "current user fetched successfully")
}

// UpdateAvatar maneja PATCH /users/avatar (multipart).
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	h.updateMedia(c, "avatar", h.userServ.UpdateAvatar, "avatar updated successfully")
}

// UpdateCoverImage maneja PATCH /users/cover-image (multipart).
func (h *UserHandler) UpdateCoverImage(c *gin.Context) {
	h.updateMedia(c, "coverImage", h.userServ.UpdateCover, "cover image updated successfully")
}

func (h *UserHandler) updateMedia(c *gin.Context, field string, update func(context.Context, string, string) (domain.PublicUser, error), message string) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized request")
		return
	}

	tempPath, err := h.saveTemp(c, field)
	if err != nil {
		h.logger.Warn("saving temp file failed", zap.String("field", field), zap.Error(err))
		respondError(c, http.StatusBadRequest, "could not receive file")
		return
	}

	user, err := update(c.Request.Context(), claims.UserID, tempPath)
	if err != nil {
		h.handleServiceError(c, err, "media update failed")
		return
	}
	respond(c, http.StatusOK, user, message)
}

func (h *UserHandler) saveTemp(c *gin.Context, field string) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		// Campo ausente: no es un error en sí, el servicio decide.
		return "", nil
	}
	dst := filepath.Join(h.tempDir, uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (h *UserHandler) handleServiceError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDuplicateUser):
		respondError(c, http.StatusBadRequest, "email or username already exists")
	case errors.Is(err, service.ErrMissingAvatar):
		respondError(c, http.StatusBadRequest, "please upload an avatar")
	case errors.Is(err, service.ErrMissingFile):
		respondError(c, http.StatusBadRequest, "please upload a file")
	case errors.Is(err, service.ErrUploadFailed):
		respondError(c, http.StatusBadRequest, "failed to upload media")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrTokenInvalid):
		respondError(c, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, service.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "user not found")
	default:
		h.logger.Error(logMsg, zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}
