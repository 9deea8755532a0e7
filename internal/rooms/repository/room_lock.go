package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	roomserrors "roomsvc/internal/rooms/errors"
	"roomsvc/pkg/config"
	"roomsvc/pkg/model"
)

const (
	RoomLockCollectionName = "Room_locks"
)

// RoomLockRepository provides advisory locks serializing capacity checks
// per room. The unique _id index enforces mutual exclusion; the TTL index
// on expires_at reaps locks orphaned by a crashed process.
type RoomLockRepository interface {
	Acquire(ctx context.Context, lockID string) error
	Release(ctx context.Context, lockID string) error
	EnsureIndexes(ctx context.Context) error
}

type mongoRoomLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRoomLockRepository(cfg *config.Config) RoomLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRoomLockRepository{
		cfg:        cfg,
		collection: db.Collection(RoomLockCollectionName),
	}
}

func (r *mongoRoomLockRepository) Acquire(ctx context.Context, lockID string) error {
	now := time.Now().UTC()
	lock := &model.RoomLock{
		ID:        lockID,
		ExpiresAt: now.Add(r.cfg.RoomLockTTL),
		CreatedAt: now,
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return roomserrors.ErrRoomLockHeld
		}
		return fmt.Errorf("failed to acquire room lock: %w", err)
	}

	return nil
}

func (r *mongoRoomLockRepository) Release(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	if err != nil {
		return fmt.Errorf("failed to release room lock: %w", err)
	}

	return nil
}

func (r *mongoRoomLockRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("failed to create room lock indexes: %w", err)
	}

	return nil
}
