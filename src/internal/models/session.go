package models

import "time"

// Session is one refresh-token grant, embedded in its owning user document.
// Sessions are never addressed on their own, only through the user.
type Session struct {
	Token     string    `bson:"token" json:"token"`
	ExpiresAt time.Time `bson:"expires_at" json:"expiresAt"`
}
