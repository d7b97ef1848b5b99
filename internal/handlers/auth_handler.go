package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-assistant-service/internal/services"
	"github.com/SAP-F-2025/study-assistant-service/internal/utils"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
)

type AuthHandler struct {
	BaseHandler
	authService services.AuthService
	userService services.UserService
	sessions    *SessionAuthMiddleware
}

func NewAuthHandler(
	authService services.AuthService,
	userService services.UserService,
	sessions *SessionAuthMiddleware,
	logger utils.Logger,
) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
		userService: userService,
		sessions:    sessions,
	}
}

// SignUp registers a new account
// @Summary Sign up
// @Description Create an account with the identity provider and start a password session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.SignUpRequest true "Sign-up data"
// @Success 201 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Failure 502 {object} ErrorResponse "Identity provider unavailable"
// @Router /auth/sign-up [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req validator.SignUpRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Signing up", "email", req.Email)

	session, err := h.authService.SignUp(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to sign up")
		return
	}

	h.sessions.SetSessionCookie(c, session.Token, session.ExpiresAt)
	c.JSON(http.StatusCreated, session)
}

// SignIn starts a password session
// @Summary Sign in
// @Description Check email and password with the identity provider and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.SignInRequest true "Credentials"
// @Success 200 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Router /auth/sign-in [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req validator.SignInRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Signing in", "email", req.Email)

	session, err := h.authService.SignIn(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to sign in")
		return
	}

	h.sessions.SetSessionCookie(c, session.Token, session.ExpiresAt)
	c.JSON(http.StatusOK, session)
}

// FaceLogin starts a face session
// @Summary Face login
// @Description Match a face descriptor against enrolled users. A miss returns 401 with the best score.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.FaceEmbeddingRequest true "Face descriptor"
// @Success 200 {object} services.FaceLoginResponse
// @Failure 400 {object} ErrorResponse "Invalid descriptor"
// @Failure 401 {object} services.FaceLoginResponse "Face not recognized"
// @Failure 429 {object} ErrorResponse "Too many attempts"
// @Router /auth/face-login [post]
func (h *AuthHandler) FaceLogin(c *gin.Context) {
	var req validator.FaceEmbeddingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Face login attempt", "client_ip", c.ClientIP())

	resp, err := h.authService.FaceLogin(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		if errors.Is(err, services.ErrFaceNotRecognized) && resp != nil {
			c.JSON(http.StatusUnauthorized, resp)
			return
		}
		h.handleServiceError(c, err, "Failed to log in with face")
		return
	}

	h.sessions.SetSessionCookie(c, resp.Session.Token, resp.Session.ExpiresAt)
	c.JSON(http.StatusOK, resp)
}

// Logout revokes the current session
// @Summary Log out
// @Tags auth
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, err := GetClaimsFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	h.LogRequest(c, "Logging out")

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		h.handleServiceError(c, err, "Failed to log out")
		return
	}

	h.sessions.ClearSessionCookie(c)
	c.JSON(http.StatusOK, SuccessResponse{Message: "Logged out"})
}

// Me returns the signed-in user
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get current user")
		return
	}

	c.JSON(http.StatusOK, user)
}

// Sync refreshes the local profile from the identity provider
// @Summary Sync profile
// @Description Pull the identity provider's profile for the signed-in user into the local store
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 502 {object} ErrorResponse "Identity provider unavailable"
// @Router /auth/sync [post]
func (h *AuthHandler) Sync(c *gin.Context) {
	claims, err := GetClaimsFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	h.LogRequest(c, "Syncing profile", "external_id", claims.ExternalID)

	user, err := h.userService.SyncFromIdentity(c.Request.Context(), claims.ExternalID)
	if err != nil {
		h.handleServiceError(c, err, "Failed to sync profile")
		return
	}

	c.JSON(http.StatusOK, user)
}

// ChangePassword rotates the password of the signed-in user
// @Summary Change password
// @Description Needs a password session and the current password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Wrong current password"
// @Failure 403 {object} ErrorResponse "Not a password session"
// @Failure 502 {object} ErrorResponse "Identity provider unavailable"
// @Router /auth/password [patch]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req validator.ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Changing password")

	if err := h.authService.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		h.handleServiceError(c, err, "Failed to change password")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Password changed"})
}
