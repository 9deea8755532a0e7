package model

import "time"

// Enrollment links a user to an event they registered for.
type Enrollment struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	EventID   string    `bson:"event_id" json:"event_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
