package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasklist-svc/src/internal/config"
	"tasklist-svc/src/internal/models"
	"tasklist-svc/src/internal/user"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

// Service is a Redis lookaside for validated sessions. Entries are keyed by
// user id and refresh token and carry the full user document, so a cache hit
// answers a session check without touching MongoDB. Expiry is still re-checked
// by the caller on every hit.
type Service interface {
	GetUserSession(ctx context.Context, userID, refreshToken string) (*user.User, error)
	CacheUserSession(ctx context.Context, u *user.User, refreshToken string, expiresAt time.Time) error
	DeleteUserSession(ctx context.Context, userID, refreshToken string) error
}

type cacheService struct {
	client *redis.Client
	cfg    *config.CacheConfig
}

const sessionKeyPattern = "session:%s:%s" // session:userID:refreshToken

func NewCacheService(client *redis.Client, cfg *config.Configuration) Service {
	return &cacheService{
		client: client,
		cfg:    &cfg.Cache,
	}
}

func (c *cacheService) GetUserSession(ctx context.Context, userID, refreshToken string) (*user.User, error) {
	key := fmt.Sprintf(sessionKeyPattern, userID, refreshToken)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // not an error, just a miss
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to get session from cache")
		return nil, models.ErrRedisGet
	}

	// Stored as BSON so the document round-trips with the same tags Mongo uses
	var u user.User
	if err := bson.Unmarshal(data, &u); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to unmarshal cached session")
		return nil, models.ErrRedisGet
	}

	logrus.WithField("user_id", userID).Debug("Session retrieved from cache")
	return &u, nil
}

func (c *cacheService) CacheUserSession(ctx context.Context, u *user.User, refreshToken string, expiresAt time.Time) error {
	key := fmt.Sprintf(sessionKeyPattern, u.ID.Hex(), refreshToken)

	data, err := bson.Marshal(u)
	if err != nil {
		logrus.WithError(err).WithField("user_id", u.ID.Hex()).Error("Failed to marshal session for cache")
		return models.ErrRedisSet
	}

	// Never outlive the session itself
	ttl := time.Duration(c.cfg.SessionExpirationMinutes) * time.Minute
	if until := time.Until(expiresAt); until < ttl {
		ttl = until
	}
	if ttl <= 0 {
		logrus.WithField("user_id", u.ID.Hex()).Warn("Session already expired, not caching")
		return nil
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logrus.WithError(err).WithField("user_id", u.ID.Hex()).Error("Failed to cache session")
		return models.ErrRedisSet
	}

	logrus.WithField("user_id", u.ID.Hex()).Debug("Session cached")
	return nil
}

func (c *cacheService) DeleteUserSession(ctx context.Context, userID, refreshToken string) error {
	key := fmt.Sprintf(sessionKeyPattern, userID, refreshToken)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to delete session from cache")
		return models.ErrRedisDelete
	}
	return nil
}
