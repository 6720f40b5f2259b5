package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"tasklist-svc/src/internal/cache"
	"tasklist-svc/src/internal/config"
	"tasklist-svc/src/internal/models"
	"tasklist-svc/src/internal/user"

	"github.com/sirupsen/logrus"
)

const refreshTokenBytes = 32 // 256 bits of entropy

// Service owns the refresh-token lifecycle: minting, validation and
// revocation of the sessions embedded in a user document.
type Service interface {
	CreateSession(ctx context.Context, u *user.User) (string, error)
	ValidateSession(ctx context.Context, userID, refreshToken string) (*user.User, *models.Session, error)
	RevokeSession(ctx context.Context, u *user.User, refreshToken string) error
}

type sessionService struct {
	users      user.Repository
	cache      cache.Service
	refreshTTL time.Duration
}

func NewSessionService(users user.Repository, cacheService cache.Service, cfg *config.Configuration) Service {
	return &sessionService{
		users:      users,
		cache:      cacheService,
		refreshTTL: time.Duration(cfg.Security.RefreshTokenTTLDays) * 24 * time.Hour,
	}
}

// HasRefreshTokenExpired reports whether a session with the given expiry is
// dead. The boundary counts: a session is expired the instant now reaches
// expiresAt.
func HasRefreshTokenExpired(expiresAt time.Time) bool {
	return !time.Now().Before(expiresAt)
}

// CreateSession mints an opaque refresh token and appends the session to the
// user document with an atomic $push, so two devices logging in at the same
// time both keep their session. The token is only returned once the persist
// succeeded.
func (s *sessionService) CreateSession(ctx context.Context, u *user.User) (string, error) {
	token, err := generateRefreshToken()
	if err != nil {
		logrus.WithError(err).Error("Failed to generate refresh token")
		return "", models.ErrSessionCreating
	}

	session := &models.Session{
		Token:     token,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}

	if err := s.users.PushSession(ctx, u.ID, session); err != nil {
		logrus.WithError(err).WithField("user_id", u.ID.Hex()).Error("Failed to persist session")
		return "", models.ErrSessionCreating
	}

	u.Sessions = append(u.Sessions, *session)

	logrus.WithFields(logrus.Fields{
		"user_id":    u.ID.Hex(),
		"expires_at": session.ExpiresAt,
	}).Info("Session created")

	return token, nil
}

// ValidateSession resolves a user id and refresh token to the owning user and
// the matched session. Failures are typed for the logs; the transport layer
// collapses them into one generic unauthorized response.
func (s *sessionService) ValidateSession(ctx context.Context, userID, refreshToken string) (*user.User, *models.Session, error) {
	if cached, err := s.cache.GetUserSession(ctx, userID, refreshToken); err == nil && cached != nil {
		if session := cached.FindSession(refreshToken); session != nil {
			if HasRefreshTokenExpired(session.ExpiresAt) {
				return nil, nil, models.ErrSessionExpired
			}
			logrus.WithField("user_id", userID).Debug("Session validated from cache")
			return cached, session, nil
		}
	}

	u, err := s.users.FindByIDAndToken(ctx, userID, refreshToken)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			// Token presence decided the lookup; classify the miss for the logs
			if _, idErr := s.users.FindByID(ctx, userID); errors.Is(idErr, models.ErrUserNotFound) {
				logrus.WithField("user_id", userID).Warn("Session validation for unknown user")
				return nil, nil, models.ErrUserNotFound
			}
			logrus.WithField("user_id", userID).Warn("Refresh token not found in user's session set")
			return nil, nil, models.ErrSessionNotFound
		}
		return nil, nil, err
	}

	session := u.FindSession(refreshToken)
	if session == nil {
		return nil, nil, models.ErrSessionNotFound
	}

	// Presence and freshness are independent checks
	if HasRefreshTokenExpired(session.ExpiresAt) {
		logrus.WithField("user_id", userID).Warn("Refresh token has expired")
		return nil, nil, models.ErrSessionExpired
	}

	if err := s.cache.CacheUserSession(ctx, u, refreshToken, session.ExpiresAt); err != nil {
		logrus.WithError(err).Debug("Could not cache validated session")
	}

	return u, session, nil
}

// RevokeSession removes exactly the presented session from the user document
// and drops its cache entry.
func (s *sessionService) RevokeSession(ctx context.Context, u *user.User, refreshToken string) error {
	if err := s.users.PullSession(ctx, u.ID, refreshToken); err != nil {
		logrus.WithError(err).WithField("user_id", u.ID.Hex()).Error("Failed to remove session")
		return models.ErrSessionDeleting
	}

	if err := s.cache.DeleteUserSession(ctx, u.ID.Hex(), refreshToken); err != nil {
		logrus.WithError(err).Debug("Could not drop cached session")
	}

	logrus.WithField("user_id", u.ID.Hex()).Info("Session revoked")
	return nil
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
