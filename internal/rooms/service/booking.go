package service

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	roomserrors "roomsvc/internal/rooms/errors"
	"roomsvc/internal/rooms/repository"
	"roomsvc/internal/rooms/validator"
	"roomsvc/pkg/config"
	apperrors "roomsvc/pkg/errors"
	"roomsvc/pkg/kafka"
	"roomsvc/pkg/model"
)

const (
	EventBookingCreated = "room-booking.created"
	EventBookingUpdated = "room-booking.updated"
)

// EventPublisher publishes booking lifecycle events. Satisfied by
// *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type BookingService interface {
	GetByUserID(ctx context.Context, userID string) (*model.BookingWithRoom, error)
	CheckEligibility(ctx context.Context, userID string) error
	CheckRoomAvailability(ctx context.Context, roomID string) error
	VerifyOwnership(ctx context.Context, userID, bookingID string) error
	Upsert(ctx context.Context, userID, bookingID, roomID string) (string, error)
}

type bookingService struct {
	repo       repository.BookingRepository
	roomRepo   repository.RoomRepository
	enrRepo    repository.EnrollmentRepository
	ticketRepo repository.TicketRepository
	lockRepo   repository.RoomLockRepository
	validator  *validator.BookingValidator
	publisher  EventPublisher
	cfg        *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	roomRepo repository.RoomRepository,
	enrRepo repository.EnrollmentRepository,
	ticketRepo repository.TicketRepository,
	lockRepo repository.RoomLockRepository,
	validator *validator.BookingValidator,
	publisher EventPublisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:       repo,
		roomRepo:   roomRepo,
		enrRepo:    enrRepo,
		ticketRepo: ticketRepo,
		lockRepo:   lockRepo,
		validator:  validator,
		publisher:  publisher,
		cfg:        cfg,
	}
}

func (s *bookingService) GetByUserID(ctx context.Context, userID string) (*model.BookingWithRoom, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	booking, err := s.repo.FindWithRoomByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, roomserrors.ErrBookingNotFound) {
			return nil, apperrors.NotFound("Booking")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

// CheckEligibility verifies the user may book a hotel room: they must hold
// a paid, in-person ticket whose type includes hotel accommodation.
func (s *bookingService) CheckEligibility(ctx context.Context, userID string) error {
	enrollment, err := s.enrRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, roomserrors.ErrEnrollmentNotFound) {
			return apperrors.Forbidden("User is not enrolled in an event")
		}
		return apperrors.Internal("Failed to check enrollment", err)
	}

	ticket, err := s.ticketRepo.FindByEnrollmentID(ctx, enrollment.ID)
	if err != nil {
		if errors.Is(err, roomserrors.ErrTicketNotFound) {
			return apperrors.Forbidden("User has no ticket for the event")
		}
		return apperrors.Internal("Failed to check ticket", err)
	}

	if ticket.Status != model.TicketStatusPaid {
		return apperrors.Forbidden("Ticket has not been paid")
	}
	if ticket.TicketType.IsRemote {
		return apperrors.Forbidden("Remote tickets do not include hotel accommodation")
	}
	if !ticket.TicketType.IncludesHotel {
		return apperrors.Forbidden("Ticket type does not include hotel accommodation")
	}

	return nil
}

// CheckRoomAvailability verifies the room exists and has free capacity.
func (s *bookingService) CheckRoomAvailability(ctx context.Context, roomID string) error {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, roomserrors.ErrRoomNotFound) {
			return apperrors.NotFoundWithID("Room", roomID)
		}
		return apperrors.Internal("Failed to retrieve room", err)
	}

	occupancy, err := s.repo.CountByRoomID(ctx, roomID)
	if err != nil {
		return apperrors.Internal("Failed to count room occupancy", err)
	}

	if occupancy >= room.Capacity {
		return apperrors.Forbidden("Room has no remaining capacity")
	}

	return nil
}

// VerifyOwnership checks that bookingID is the caller's own booking.
func (s *bookingService) VerifyOwnership(ctx context.Context, userID, bookingID string) error {
	booking, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, roomserrors.ErrBookingNotFound) {
			return apperrors.Forbidden("User has no booking to update")
		}
		return apperrors.Internal("Failed to verify booking ownership", err)
	}

	if booking.ID != bookingID {
		return apperrors.Forbidden("Booking does not belong to the user")
	}

	return nil
}

// Upsert creates a booking when bookingID is empty, otherwise moves the
// existing booking to roomID. The room's advisory lock serializes the
// capacity re-check against concurrent writers; occupancy is counted again
// inside the transaction so the check and the write are atomic.
func (s *bookingService) Upsert(ctx context.Context, userID, bookingID, roomID string) (string, error) {
	if err := s.validator.Validate(&model.BookingRequest{RoomID: roomID}); err != nil {
		s.cfg.Log.Warn("Booking request validation failed", "error", err)
		return "", apperrors.Validation("Invalid booking request", map[string]any{"error": err.Error()})
	}

	lockID, err := s.acquireRoomLock(ctx, roomID)
	if err != nil {
		return "", err
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release room lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	resultID := bookingID
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		// Occupancy still counts the caller's own booking when they
		// re-book the same room; a full room rejects the move even
		// though it would not change occupancy.
		if err := s.CheckRoomAvailability(sessCtx, roomID); err != nil {
			return err
		}

		if bookingID == "" {
			id, err := s.repo.Insert(sessCtx, userID, roomID)
			if err != nil {
				if errors.Is(err, roomserrors.ErrDuplicateBooking) {
					return apperrors.Conflict("User already has a booking")
				}
				return apperrors.Internal("Failed to create booking", err)
			}
			resultID = id
			return nil
		}

		if err := s.repo.UpdateRoom(sessCtx, bookingID, userID, roomID); err != nil {
			if errors.Is(err, roomserrors.ErrBookingNotFound) {
				return apperrors.NotFoundWithID("Booking", bookingID)
			}
			return apperrors.Internal("Failed to update booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to upsert booking", "user_id", userID, "room_id", roomID, "error", err)
		return "", err
	}

	s.publishBookingEvent(ctx, userID, resultID, roomID, bookingID == "")

	s.cfg.Log.Info("Booking upserted successfully",
		"booking_id", resultID,
		"user_id", userID,
		"room_id", roomID,
		"created", bookingID == "",
	)
	return resultID, nil
}

func (s *bookingService) acquireRoomLock(ctx context.Context, roomID string) (string, error) {
	lockID := "room_lock_" + roomID

	if err := s.lockRepo.Acquire(ctx, lockID); err != nil {
		if errors.Is(err, roomserrors.ErrRoomLockHeld) {
			return "", apperrors.Conflict("This room is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire room lock", err)
	}

	return lockID, nil
}

// publishBookingEvent emits a lifecycle event. Publishing is best effort;
// the booking is already committed so failures are only logged.
func (s *bookingService) publishBookingEvent(ctx context.Context, userID, bookingID, roomID string, created bool) {
	if s.publisher == nil {
		return
	}

	eventType := EventBookingUpdated
	if created {
		eventType = EventBookingCreated
	}

	msg := kafka.NewMessage().
		WithKey(bookingID).
		WithValue(map[string]string{
			"booking_id": bookingID,
			"user_id":    userID,
			"room_id":    roomID,
		}).
		WithEventType(eventType).
		WithSource("roomsvc").
		Build()

	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.cfg.Log.Error("Failed to publish booking event",
			"booking_id", bookingID,
			"event_type", eventType,
			"error", err,
		)
	}
}
