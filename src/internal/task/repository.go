package task

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
	FindAllByList(ctx context.Context, listID primitive.ObjectID) ([]*Task, error)
	Create(ctx context.Context, task *Task) error
	Update(ctx context.Context, id string, listID primitive.ObjectID, update bson.M) (*Task, error)
	Delete(ctx context.Context, id string, listID primitive.ObjectID) (*Task, error)
}

type taskRepository struct {
	Collection mongo.Collection
}

func NewTaskRepository(mongoClient *clients.MongoDB, collectionName string) Repository {
	collection := *mongoClient.Database.Collection(collectionName)
	return &taskRepository{
		Collection: collection,
	}
}

func (r *taskRepository) FindAllByList(ctx context.Context, listID primitive.ObjectID) ([]*Task, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"_listId": listID})
	if err != nil {
		logrus.WithError(err).Error("Failed to find tasks")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	tasks := []*Task{}
	for cursor.Next(ctx) {
		var task Task
		if err := cursor.Decode(&task); err != nil {
			logrus.WithError(err).Error("Failed to decode task")
			continue
		}
		tasks = append(tasks, &task)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	return tasks, nil
}

func (r *taskRepository) Create(ctx context.Context, task *Task) error {
	result, err := r.Collection.InsertOne(ctx, task)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert task")
		return models.ErrDatabaseInsert
	}

	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		task.ID = id
	}
	return nil
}

func (r *taskRepository) Update(ctx context.Context, id string, listID primitive.ObjectID, update bson.M) (*Task, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrTaskNotFound
	}

	filter := bson.M{"_id": objectID, "_listId": listID}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var task Task
	err = r.Collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": update}, opts).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrTaskNotFound
		}
		logrus.WithError(err).WithField("task_id", id).Error("Failed to update task")
		return nil, models.ErrDatabaseUpdate
	}
	return &task, nil
}

func (r *taskRepository) Delete(ctx context.Context, id string, listID primitive.ObjectID) (*Task, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrTaskNotFound
	}

	var task Task
	err = r.Collection.FindOneAndDelete(ctx, bson.M{"_id": objectID, "_listId": listID}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrTaskNotFound
		}
		logrus.WithError(err).WithField("task_id", id).Error("Failed to delete task")
		return nil, models.ErrDatabaseDelete
	}
	return &task, nil
}
