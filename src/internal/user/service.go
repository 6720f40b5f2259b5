package user

import (
	"context"
	"errors"
	"strings"

	"tasklist-svc/src/internal/config"
	"tasklist-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type Service interface {
	Register(ctx context.Context, email, password string) (*User, error)
	FindByCredentials(ctx context.Context, email, password string) (*User, error)
}

type userService struct {
	userRepository Repository
	bcryptCost     int
}

func NewUserService(userRepository Repository, cfg *config.Configuration) Service {
	cost := cfg.Security.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &userService{
		userRepository: userRepository,
		bcryptCost:     cost,
	}
}

// Register creates a user with a bcrypt-hashed password. The existence
// pre-check keeps the common duplicate case cheap; the unique email index is
// what actually guarantees uniqueness under concurrent registrations.
func (s *userService) Register(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || !strings.Contains(email, "@") || len(password) < minPasswordLength {
		return nil, models.ErrValidation
	}

	if _, err := s.userRepository.FindByEmail(ctx, email); err == nil {
		logrus.WithField("email", email).Debug("Registration attempt with taken email")
		return nil, models.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		logrus.WithError(err).Error("Failed to hash password")
		return nil, err
	}

	user := &User{
		Email:    email,
		Password: string(hash),
	}

	if err := s.userRepository.Create(ctx, user); err != nil {
		if !errors.Is(err, models.ErrEmailTaken) {
			logrus.WithError(err).Error("Failed to create user")
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID.Hex(),
		"email":   user.Email,
	}).Info("User registered")

	return user, nil
}

// FindByCredentials resolves a user by email and password. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *userService) FindByCredentials(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepository.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		logrus.WithField("user_id", user.ID.Hex()).Debug("Password mismatch")
		return nil, models.ErrInvalidCredentials
	}

	return user, nil
}
