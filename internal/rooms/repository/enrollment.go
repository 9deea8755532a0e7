package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	roomserrors "roomsvc/internal/rooms/errors"
	"roomsvc/pkg/config"
	"roomsvc/pkg/model"
)

const (
	EnrollmentCollectionName = "Enrollments"
)

type EnrollmentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Enrollment, error)
}

type mongoEnrollmentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoEnrollmentRepository(cfg *config.Config) EnrollmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoEnrollmentRepository{
		cfg:        cfg,
		collection: db.Collection(EnrollmentCollectionName),
	}
}

// FindByUserID returns the user's most recent enrollment.
func (r *mongoEnrollmentRepository) FindByUserID(ctx context.Context, userID string) (*model.Enrollment, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var enrollment model.Enrollment
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&enrollment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, roomserrors.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to find enrollment: %w", err)
	}

	return &enrollment, nil
}
