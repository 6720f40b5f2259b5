package list

import (
	"context"
	"errors"

	"tasklist-svc/src/clients"
	"tasklist-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	FindAllByUser(ctx context.Context, userID primitive.ObjectID) ([]*List, error)
	FindByIDAndUser(ctx context.Context, id string, userID primitive.ObjectID) (*List, error)
	Create(ctx context.Context, list *List) error
	Update(ctx context.Context, id string, userID primitive.ObjectID, title string) (*List, error)
	Delete(ctx context.Context, id string, userID primitive.ObjectID) error
}

type listRepository struct {
	Collection mongo.Collection
}

func NewListRepository(mongoClient *clients.MongoDB, collectionName string) Repository {
	collection := *mongoClient.Database.Collection(collectionName)
	return &listRepository{
		Collection: collection,
	}
}

func (r *listRepository) FindAllByUser(ctx context.Context, userID primitive.ObjectID) ([]*List, error) {
	filter := bson.M{"_userId": userID}

	cursor, err := r.Collection.Find(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to find lists")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	lists := []*List{}
	for cursor.Next(ctx) {
		var list List
		if err := cursor.Decode(&list); err != nil {
			logrus.WithError(err).Error("Failed to decode list")
			continue
		}
		lists = append(lists, &list)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	return lists, nil
}

func (r *listRepository) FindByIDAndUser(ctx context.Context, id string, userID primitive.ObjectID) (*List, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrListNotFound
	}

	var list List
	err = r.Collection.FindOne(ctx, bson.M{"_id": objectID, "_userId": userID}).Decode(&list)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrListNotFound
		}
		logrus.WithError(err).WithField("list_id", id).Error("Failed to find list")
		return nil, models.ErrDatabaseQuery
	}
	return &list, nil
}

func (r *listRepository) Create(ctx context.Context, list *List) error {
	result, err := r.Collection.InsertOne(ctx, list)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert list")
		return models.ErrDatabaseInsert
	}

	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		list.ID = id
	}
	return nil
}

func (r *listRepository) Update(ctx context.Context, id string, userID primitive.ObjectID, title string) (*List, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrListNotFound
	}

	filter := bson.M{"_id": objectID, "_userId": userID}
	update := bson.M{"$set": bson.M{"title": title}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var list List
	err = r.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&list)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrListNotFound
		}
		logrus.WithError(err).WithField("list_id", id).Error("Failed to update list")
		return nil, models.ErrDatabaseUpdate
	}
	return &list, nil
}

func (r *listRepository) Delete(ctx context.Context, id string, userID primitive.ObjectID) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrListNotFound
	}

	result, err := r.Collection.DeleteOne(ctx, bson.M{"_id": objectID, "_userId": userID})
	if err != nil {
		logrus.WithError(err).WithField("list_id", id).Error("Failed to delete list")
		return models.ErrDatabaseDelete
	}
	if result.DeletedCount == 0 {
		return models.ErrListNotFound
	}
	return nil
}
