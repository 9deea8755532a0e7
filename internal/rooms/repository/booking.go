package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	roomserrors "roomsvc/internal/rooms/errors"
	"roomsvc/pkg/config"
	mongotx "roomsvc/pkg/db/mongo"
	"roomsvc/pkg/model"
)

const (
	BookingCollectionName = "Bookings"
)

type BookingRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Booking, error)
	FindWithRoomByUserID(ctx context.Context, userID string) (*model.BookingWithRoom, error)
	CountByRoomID(ctx context.Context, roomID string) (int64, error)
	Insert(ctx context.Context, userID, roomID string) (string, error)
	UpdateRoom(ctx context.Context, bookingID, userID, roomID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
	EnsureIndexes(ctx context.Context) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(BookingCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless already inside a
// transaction. SessionContext cannot be wrapped without breaking
// transaction semantics, so it is returned unchanged with a no-op cancel.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) FindByUserID(ctx context.Context, userID string) (*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, roomserrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindWithRoomByUserID(ctx context.Context, userID string) (*model.BookingWithRoom, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$limit", Value: 1}},
		{{Key: "$lookup", Value: bson.M{
			"from":         RoomCollectionName,
			"localField":   "room_id",
			"foreignField": "_id",
			"as":           "room",
		}}},
		{{Key: "$unwind", Value: "$room"}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate booking with room: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*model.BookingWithRoom
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode booking with room: %w", err)
	}

	if len(results) == 0 {
		return nil, roomserrors.ErrBookingNotFound
	}

	return results[0], nil
}

func (r *mongoBookingRepository) CountByRoomID(ctx context.Context, roomID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"room_id": roomID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings by room: %w", err)
	}

	return count, nil
}

func (r *mongoBookingRepository) Insert(ctx context.Context, userID, roomID string) (string, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking := &model.Booking{
		ID:        primitive.NewObjectID().Hex(),
		UserID:    userID,
		RoomID:    roomID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", roomserrors.ErrDuplicateBooking
		}
		return "", fmt.Errorf("failed to insert booking: %w", err)
	}

	return booking.ID, nil
}

func (r *mongoBookingRepository) UpdateRoom(ctx context.Context, bookingID, userID, roomID string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": bookingID, "user_id": userID}
	update := bson.M{
		"$set": bson.M{
			"room_id":    roomID,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	if result.MatchedCount == 0 {
		return roomserrors.ErrBookingNotFound
	}

	return nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

// EnsureIndexes creates the unique index backing the one-booking-per-user
// rule and the room_id index used by occupancy counts.
func (r *mongoBookingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "room_id", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	return nil
}
