package token

import (
	"errors"
	"time"

	"tasklist-svc/src/internal/config"
	"tasklist-svc/src/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Claims represents access token claims
type Claims struct {
	UserID    string `json:"userId"`
	TokenType string `json:"tokenType"`
	jwt.RegisteredClaims
}

const tokenTypeAccess = "access"

// Codec issues and verifies short-lived access tokens. Stateless: every
// operation is a pure function of the input and the configured secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(cfg *config.SecuritySettings) *Codec {
	return &Codec{
		secret: []byte(cfg.JwtKey),
		ttl:    time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute,
		now:    time.Now,
	}
}

// Issue signs a new access token for the given user id and returns the token
// together with its expiry.
func (c *Codec) Issue(userID string) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.ttl)

	claims := &Claims{
		UserID:    userID,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		logrus.WithError(err).Error("Failed to sign access token")
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Verify checks the token signature and expiry and returns the embedded user
// id. Callers get the same ErrAccessTokenInvalid whatever went wrong; the
// concrete cause stays in the logs.
func (c *Codec) Verify(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			logrus.Debug("Access token expired")
		} else {
			logrus.WithError(err).Debug("Access token verification failed")
		}
		return "", models.ErrAccessTokenInvalid
	}

	if !parsed.Valid {
		return "", models.ErrAccessTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return "", models.ErrAccessTokenInvalid
	}

	if claims.TokenType != tokenTypeAccess {
		logrus.WithField("token_type", claims.TokenType).Debug("Unexpected token type")
		return "", models.ErrAccessTokenInvalid
	}

	return claims.UserID, nil
}
