package list

import "go.mongodb.org/mongo-driver/bson/primitive"

// List is a named collection of tasks owned by one user.
type List struct {
	ID     primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Title  string             `json:"title" bson:"title"`
	UserID primitive.ObjectID `json:"_userId" bson:"_userId"`
}

type CreateListRequest struct {
	Title string `json:"title"`
}

type UpdateListRequest struct {
	Title string `json:"title"`
}
