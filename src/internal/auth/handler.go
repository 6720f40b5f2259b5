package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tasklist-svc/src/internal/config"
	"tasklist-svc/src/internal/middleware"
	"tasklist-svc/src/internal/models"
	"tasklist-svc/src/internal/session"
	"tasklist-svc/src/internal/token"
	"tasklist-svc/src/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Token pair response headers, kept compatible with the web client
const (
	HeaderRefreshToken = "x-refresh-token"
	HeaderAccessToken  = "x-access-token"
)

// ActivityPublisher emits auth events to the message broker. Publishing is
// best effort; a broker outage never fails the request.
type ActivityPublisher interface {
	PublishActivityWithDetails(userID, serviceName, action, ipAddress, userAgent string) error
}

type Handler interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	GetAccessToken(c *gin.Context)
	Logout(c *gin.Context)
}

type handler struct {
	config   *config.Configuration
	users    user.Service
	sessions session.Service
	codec    *token.Codec
	activity ActivityPublisher
}

func NewHandler(cfg *config.Configuration, users user.Service, sessions session.Service, codec *token.Codec, activity ActivityPublisher) Handler {
	return &handler{
		config:   cfg,
		users:    users,
		sessions: sessions,
		codec:    codec,
		activity: activity,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user account and immediately opens a session, returning
// the token pair in the response headers.
func (h *handler) Register(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		h.sendErrorResponse(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := h.users.Register(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrValidation):
			h.sendErrorResponse(c, http.StatusBadRequest, "Email and password are required")
		case errors.Is(err, models.ErrEmailTaken):
			h.sendErrorResponse(c, http.StatusBadRequest, "Email is already taken")
		default:
			logrus.WithError(err).Error("User sign-up failed")
			h.sendErrorResponse(c, http.StatusInternalServerError, "User sign-up failed. Please try again later")
		}
		return
	}

	if !h.issueTokenPair(c, ctx, u) {
		return
	}

	h.publishActivity(c, u.ID.Hex(), models.ActionRegistered)

	logrus.WithFields(logrus.Fields{
		"user_id": u.ID.Hex(),
		"email":   u.Email,
	}).Info("User signed up")

	c.JSON(http.StatusOK, gin.H{"user": u.ToProfile()})
}

// Login verifies credentials and opens a new session alongside any the user
// already holds on other devices.
func (h *handler) Login(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		h.sendErrorResponse(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := h.users.FindByCredentials(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			h.sendErrorResponse(c, http.StatusBadRequest, "Invalid email or password")
			return
		}
		logrus.WithError(err).Error("Login failed")
		h.sendErrorResponse(c, http.StatusInternalServerError, "Login failed. Please try again later")
		return
	}

	if !h.issueTokenPair(c, ctx, u) {
		return
	}

	h.publishActivity(c, u.ID.Hex(), models.ActionLoggedIn)

	logrus.WithField("user_id", u.ID.Hex()).Info("User logged in")

	c.JSON(http.StatusOK, gin.H{"user": u.ToProfile()})
}

// GetAccessToken mints a fresh access token for a session the middleware has
// already validated.
func (h *handler) GetAccessToken(c *gin.Context) {
	u, ok := h.contextUser(c)
	if !ok {
		return
	}

	accessToken, _, err := h.codec.Issue(u.ID.Hex())
	if err != nil {
		logrus.WithError(err).Error("Error generating access token")
		h.sendErrorResponse(c, http.StatusInternalServerError, "Failed to generate access token")
		return
	}

	h.publishActivity(c, u.ID.Hex(), models.ActionTokenRefreshed)

	c.Header(HeaderAccessToken, accessToken)
	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

// Logout revokes exactly the session presented with this request.
func (h *handler) Logout(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	u, ok := h.contextUser(c)
	if !ok {
		return
	}

	refreshToken := c.GetString(middleware.ContextRefreshToken)
	if err := h.sessions.RevokeSession(ctx, u, refreshToken); err != nil {
		logrus.WithError(err).Error("Logout failed")
		h.sendErrorResponse(c, http.StatusInternalServerError, "Failed to log out")
		return
	}

	h.publishActivity(c, u.ID.Hex(), models.ActionLoggedOut)

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// issueTokenPair creates a session and access token and writes both headers.
// A session that could not be persisted is an internal failure: no token ever
// leaves the service unless it is stored.
func (h *handler) issueTokenPair(c *gin.Context, ctx context.Context, u *user.User) bool {
	refreshToken, err := h.sessions.CreateSession(ctx, u)
	if err != nil {
		logrus.WithError(err).WithField("user_id", u.ID.Hex()).Error("Failed to create session")
		h.sendErrorResponse(c, http.StatusInternalServerError, "Failed to create session. Please try again later")
		return false
	}

	accessToken, _, err := h.codec.Issue(u.ID.Hex())
	if err != nil {
		logrus.WithError(err).WithField("user_id", u.ID.Hex()).Error("Failed to issue access token")
		h.sendErrorResponse(c, http.StatusInternalServerError, "Failed to generate access token")
		return false
	}

	c.Header(HeaderRefreshToken, refreshToken)
	c.Header(HeaderAccessToken, accessToken)
	return true
}

func (h *handler) contextUser(c *gin.Context) (*user.User, bool) {
	value, exists := c.Get(middleware.ContextUser)
	if !exists {
		logrus.Error("User missing from context, VerifySession must run first")
		h.sendErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}

	u, ok := value.(*user.User)
	if !ok {
		logrus.Error("Unexpected user type in context")
		h.sendErrorResponse(c, http.StatusInternalServerError, "Internal error")
		return nil, false
	}
	return u, true
}

func (h *handler) publishActivity(c *gin.Context, userID, action string) {
	if h.activity == nil {
		return
	}
	err := h.activity.PublishActivityWithDetails(userID, models.ServiceAuthHandler, action, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		logrus.WithError(err).Debug("Could not publish activity event")
	}
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) sendErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error": message,
	})
	if statusCode == http.StatusUnauthorized {
		c.Abort()
	}
}
