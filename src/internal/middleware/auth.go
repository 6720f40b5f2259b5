package middleware

import (
	"net/http"

	"tasklist-svc/src/internal/models"
	"tasklist-svc/src/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Header and context keys consumed by the session gate
const (
	HeaderRefreshToken = "x-refresh-token"
	HeaderUserID       = "_id"

	ContextUser         = "user"
	ContextUserID       = "user_id"
	ContextRefreshToken = "refresh_token"
)

// ActivityPublisher emits auth events to the message broker. Publishing is
// best effort; a broker outage never fails the request.
type ActivityPublisher interface {
	PublishActivityWithDetails(userID, serviceName, action, ipAddress, userAgent string) error
}

// AuthMiddleware gates protected routes behind refresh-token validation.
type AuthMiddleware struct {
	sessions session.Service
	activity ActivityPublisher
}

func NewAuthMiddleware(sessions session.Service, activity ActivityPublisher) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		activity: activity,
	}
}

// VerifySession resolves the x-refresh-token and _id headers into an
// authenticated user on the request context. Every failure produces the same
// generic 401 body; whether the user was unknown, the token absent or the
// session expired is visible only in the logs.
func (m *AuthMiddleware) VerifySession() gin.HandlerFunc {
	return func(c *gin.Context) {
		refreshToken := c.GetHeader(HeaderRefreshToken)
		userID := c.GetHeader(HeaderUserID)

		if refreshToken == "" || userID == "" {
			logrus.Warn("Session headers missing on protected route")
			m.unauthorized(c)
			return
		}

		u, matched, err := m.sessions.ValidateSession(c.Request.Context(), userID, refreshToken)
		if err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("Session validation failed")
			m.unauthorized(c)
			return
		}

		// The lookup proved presence; freshness is a separate property and is
		// checked again here before the request may proceed.
		if session.HasRefreshTokenExpired(matched.ExpiresAt) {
			logrus.WithField("user_id", userID).Warn("Session expired between lookup and gate")
			m.unauthorized(c)
			return
		}

		c.Set(ContextUser, u)
		c.Set(ContextUserID, u.ID.Hex())
		c.Set(ContextRefreshToken, refreshToken)

		m.publishSessionCheck(c, u.ID.Hex())

		logrus.WithField("user_id", u.ID.Hex()).Debug("Session verified")

		c.Next()
	}
}

func (m *AuthMiddleware) publishSessionCheck(c *gin.Context, userID string) {
	if m.activity == nil {
		return
	}
	err := m.activity.PublishActivityWithDetails(userID, models.ServiceAuthMiddleware, models.ActionSessionCheck, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		logrus.WithError(err).Debug("Could not publish session-check event")
	}
}

func (m *AuthMiddleware) unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "Refresh token has expired or the session is invalid",
	})
	c.Abort()
}
