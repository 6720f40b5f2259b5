package user

import (
	"context"
	"errors"
	"time"

	"tasklist-svc/src/clients"
	"tasklist-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByIDAndToken(ctx context.Context, id, refreshToken string) (*User, error)
	PushSession(ctx context.Context, userID primitive.ObjectID, session *models.Session) error
	PullSession(ctx context.Context, userID primitive.ObjectID, refreshToken string) error
}

type userRepository struct {
	Collection mongo.Collection
}

func NewUserRepository(mongoClient *clients.MongoDB, collectionName string) Repository {
	collection := *mongoClient.Database.Collection(collectionName)
	return &userRepository{
		Collection: collection,
	}
}

// EnsureIndexes creates the unique email index. The index is the real
// uniqueness enforcement; the service-level existence pre-check is only an
// optimization.
func (r *userRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to create unique email index")
		return models.ErrDatabaseQuery
	}
	return nil
}

func (r *userRepository) Create(ctx context.Context, user *User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Sessions == nil {
		user.Sessions = []models.Session{}
	}

	result, err := r.Collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			logrus.WithField("email", user.Email).Debug("Duplicate email on insert")
			return models.ErrEmailTaken
		}
		logrus.WithError(err).Error("Failed to insert user")
		return models.ErrDatabaseInsert
	}

	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}

	return nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.Collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		logrus.WithError(err).Error("Failed to find user by email")
		return nil, models.ErrDatabaseQuery
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrUserNotFound
	}

	var user User
	err = r.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		logrus.WithError(err).WithField("user_id", id).Error("Failed to find user by id")
		return nil, models.ErrDatabaseQuery
	}
	return &user, nil
}

// FindByIDAndToken matches a user holding the given refresh token. Token
// presence only; freshness is the caller's problem.
func (r *userRepository) FindByIDAndToken(ctx context.Context, id, refreshToken string) (*User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrUserNotFound
	}

	filter := bson.M{
		"_id":            objectID,
		"sessions.token": refreshToken,
	}

	var user User
	err = r.Collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		logrus.WithError(err).WithField("user_id", id).Error("Failed to find user by id and token")
		return nil, models.ErrDatabaseQuery
	}
	return &user, nil
}

// PushSession appends a session with an atomic $push so that concurrent
// logins for the same user never clobber each other's sessions.
func (r *userRepository) PushSession(ctx context.Context, userID primitive.ObjectID, session *models.Session) error {
	filter := bson.M{"_id": userID}
	update := bson.M{
		"$push": bson.M{"sessions": session},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	result, err := r.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to push session")
		return models.ErrDatabaseUpdate
	}
	if result.MatchedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// PullSession removes exactly the session carrying the given token.
func (r *userRepository) PullSession(ctx context.Context, userID primitive.ObjectID, refreshToken string) error {
	filter := bson.M{"_id": userID}
	update := bson.M{
		"$pull": bson.M{"sessions": bson.M{"token": refreshToken}},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	result, err := r.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to pull session")
		return models.ErrDatabaseUpdate
	}
	if result.MatchedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
