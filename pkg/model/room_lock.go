package model

import "time"

// RoomLock is a short-lived advisory lock document guarding concurrent
// capacity checks for one room. The _id carries the lock name so the unique
// index on _id enforces mutual exclusion; expires_at drives a TTL index.
type RoomLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
