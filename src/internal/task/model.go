package task

import "go.mongodb.org/mongo-driver/bson/primitive"

// Task belongs to exactly one list.
type Task struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Title     string             `json:"title" bson:"title"`
	Completed bool               `json:"completed" bson:"completed"`
	ListID    primitive.ObjectID `json:"_listId" bson:"_listId"`
}

type CreateTaskRequest struct {
	Title string `json:"title"`
}

type UpdateTaskRequest struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}
