package user

import (
	"time"

	"tasklist-svc/src/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User owns its sessions: they are embedded in the document and never
// addressed independently, so session appends stay atomic on the user.
type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"-" bson:"password"`
	Sessions  []models.Session   `json:"-" bson:"sessions"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updated_at"`
}

type Profile struct {
	ID        primitive.ObjectID `json:"_id"`
	Email     string             `json:"email"`
	CreatedAt time.Time          `json:"createdAt"`
}

// ToProfile converts User to its public representation. The password hash and
// the session set never leave the service.
func (u *User) ToProfile() *Profile {
	return &Profile{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// FindSession returns the session holding exactly the given refresh token,
// or nil when no session matches.
func (u *User) FindSession(refreshToken string) *models.Session {
	for i := range u.Sessions {
		if u.Sessions[i].Token == refreshToken {
			return &u.Sessions[i]
		}
	}
	return nil
}
