package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	roomserrors "roomsvc/internal/rooms/errors"
	"roomsvc/pkg/config"
	"roomsvc/pkg/model"
)

const (
	TicketCollectionName = "Tickets"
)

type TicketRepository interface {
	FindByEnrollmentID(ctx context.Context, enrollmentID string) (*model.Ticket, error)
}

type mongoTicketRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTicketRepository(cfg *config.Config) TicketRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTicketRepository{
		cfg:        cfg,
		collection: db.Collection(TicketCollectionName),
	}
}

func (r *mongoTicketRepository) FindByEnrollmentID(ctx context.Context, enrollmentID string) (*model.Ticket, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var ticket model.Ticket
	err := r.collection.FindOne(ctx, bson.M{"enrollment_id": enrollmentID}).Decode(&ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, roomserrors.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to find ticket: %w", err)
	}

	return &ticket, nil
}
