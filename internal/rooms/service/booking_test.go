package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	roomserrors "roomsvc/internal/rooms/errors"
	"roomsvc/internal/rooms/validator"
	"roomsvc/pkg/config"
	mongotx "roomsvc/pkg/db/mongo"
	apperrors "roomsvc/pkg/errors"
	"roomsvc/pkg/kafka"
	"roomsvc/pkg/logger"
	"roomsvc/pkg/model"
)

const (
	testUserID = "user-1"
	testRoomID = "507f1f77bcf86cd799439011"
)

// Mock repositories for testing

type mockBookingRepository struct {
	findByUserIDFunc         func(ctx context.Context, userID string) (*model.Booking, error)
	findWithRoomByUserIDFunc func(ctx context.Context, userID string) (*model.BookingWithRoom, error)
	countByRoomIDFunc        func(ctx context.Context, roomID string) (int64, error)
	insertFunc               func(ctx context.Context, userID, roomID string) (string, error)
	updateRoomFunc           func(ctx context.Context, bookingID, userID, roomID string) error
}

func (m *mockBookingRepository) FindByUserID(ctx context.Context, userID string) (*model.Booking, error) {
	if m.findByUserIDFunc != nil {
		return m.findByUserIDFunc(ctx, userID)
	}
	return nil, roomserrors.ErrBookingNotFound
}

func (m *mockBookingRepository) FindWithRoomByUserID(ctx context.Context, userID string) (*model.BookingWithRoom, error) {
	if m.findWithRoomByUserIDFunc != nil {
		return m.findWithRoomByUserIDFunc(ctx, userID)
	}
	return nil, roomserrors.ErrBookingNotFound
}

func (m *mockBookingRepository) CountByRoomID(ctx context.Context, roomID string) (int64, error) {
	if m.countByRoomIDFunc != nil {
		return m.countByRoomIDFunc(ctx, roomID)
	}
	return 0, nil
}

func (m *mockBookingRepository) Insert(ctx context.Context, userID, roomID string) (string, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, userID, roomID)
	}
	return "generated-id", nil
}

func (m *mockBookingRepository) UpdateRoom(ctx context.Context, bookingID, userID, roomID string) error {
	if m.updateRoomFunc != nil {
		return m.updateRoomFunc(ctx, bookingID, userID, roomID)
	}
	return nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

func (m *mockBookingRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}

type mockRoomRepository struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Room, error)
}

func (m *mockRoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Room{ID: id, Name: "Room 101", Capacity: 2}, nil
}

type mockEnrollmentRepository struct {
	findByUserIDFunc func(ctx context.Context, userID string) (*model.Enrollment, error)
}

func (m *mockEnrollmentRepository) FindByUserID(ctx context.Context, userID string) (*model.Enrollment, error) {
	if m.findByUserIDFunc != nil {
		return m.findByUserIDFunc(ctx, userID)
	}
	return &model.Enrollment{ID: "enrollment-1", UserID: userID, EventID: "event-1"}, nil
}

type mockTicketRepository struct {
	findByEnrollmentIDFunc func(ctx context.Context, enrollmentID string) (*model.Ticket, error)
}

func (m *mockTicketRepository) FindByEnrollmentID(ctx context.Context, enrollmentID string) (*model.Ticket, error) {
	if m.findByEnrollmentIDFunc != nil {
		return m.findByEnrollmentIDFunc(ctx, enrollmentID)
	}
	return &model.Ticket{
		ID:           "ticket-1",
		EnrollmentID: enrollmentID,
		Status:       model.TicketStatusPaid,
		TicketType:   model.TicketType{IsRemote: false, IncludesHotel: true},
	}, nil
}

type mockRoomLockRepository struct {
	acquireFunc func(ctx context.Context, lockID string) error
	releaseFunc func(ctx context.Context, lockID string) error
	acquired    []string
	released    []string
}

func (m *mockRoomLockRepository) Acquire(ctx context.Context, lockID string) error {
	m.acquired = append(m.acquired, lockID)
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx, lockID)
	}
	return nil
}

func (m *mockRoomLockRepository) Release(ctx context.Context, lockID string) error {
	m.released = append(m.released, lockID)
	if m.releaseFunc != nil {
		return m.releaseFunc(ctx, lockID)
	}
	return nil
}

func (m *mockRoomLockRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}

type mockPublisher struct {
	published []kafka.Message
	err       error
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	m.published = append(m.published, msg)
	return m.err
}

func newTestService(
	repo *mockBookingRepository,
	roomRepo *mockRoomRepository,
	enrRepo *mockEnrollmentRepository,
	ticketRepo *mockTicketRepository,
	lockRepo *mockRoomLockRepository,
	publisher EventPublisher,
) *bookingService {
	log := logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
		Output:    io.Discard,
	})

	cfg := &config.Config{
		Log:          log,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		RoomLockTTL:  10 * time.Second,
	}

	if repo == nil {
		repo = &mockBookingRepository{}
	}
	if roomRepo == nil {
		roomRepo = &mockRoomRepository{}
	}
	if enrRepo == nil {
		enrRepo = &mockEnrollmentRepository{}
	}
	if ticketRepo == nil {
		ticketRepo = &mockTicketRepository{}
	}
	if lockRepo == nil {
		lockRepo = &mockRoomLockRepository{}
	}

	return &bookingService{
		repo:       repo,
		roomRepo:   roomRepo,
		enrRepo:    enrRepo,
		ticketRepo: ticketRepo,
		lockRepo:   lockRepo,
		validator:  validator.NewBookingValidator(log),
		publisher:  publisher,
		cfg:        cfg,
	}
}

func assertAppErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", wantCode)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != wantCode {
		t.Errorf("expected error code %s, got %s (%v)", wantCode, appErr.Code, err)
	}
}

func TestGetByUserID_NoBooking(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil, nil, nil)

	_, err := svc.GetByUserID(context.Background(), testUserID)
	assertAppErrorCode(t, err, apperrors.CodeNotFound)
}

func TestGetByUserID_ReturnsBookingWithRoom(t *testing.T) {
	repo := &mockBookingRepository{
		findWithRoomByUserIDFunc: func(ctx context.Context, userID string) (*model.BookingWithRoom, error) {
			return &model.BookingWithRoom{
				Booking: model.Booking{ID: "booking-1", UserID: userID, RoomID: testRoomID},
				Room:    model.Room{ID: testRoomID, Name: "Room 101", Capacity: 2},
			}, nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil, nil)

	booking, err := svc.GetByUserID(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.ID != "booking-1" {
		t.Errorf("expected booking ID booking-1, got %s", booking.ID)
	}
	if booking.Room.Name != "Room 101" {
		t.Errorf("expected joined room, got %+v", booking.Room)
	}
}

func TestCheckEligibility(t *testing.T) {
	paidHotelTicket := func(status string, isRemote, includesHotel bool) *mockTicketRepository {
		return &mockTicketRepository{
			findByEnrollmentIDFunc: func(ctx context.Context, enrollmentID string) (*model.Ticket, error) {
				return &model.Ticket{
					ID:           "ticket-1",
					EnrollmentID: enrollmentID,
					Status:       status,
					TicketType:   model.TicketType{IsRemote: isRemote, IncludesHotel: includesHotel},
				}, nil
			},
		}
	}

	tests := []struct {
		name       string
		enrRepo    *mockEnrollmentRepository
		ticketRepo *mockTicketRepository
		wantCode   string
	}{
		{
			name: "no enrollment",
			enrRepo: &mockEnrollmentRepository{
				findByUserIDFunc: func(ctx context.Context, userID string) (*model.Enrollment, error) {
					return nil, roomserrors.ErrEnrollmentNotFound
				},
			},
			wantCode: apperrors.CodeForbidden,
		},
		{
			name: "no ticket",
			ticketRepo: &mockTicketRepository{
				findByEnrollmentIDFunc: func(ctx context.Context, enrollmentID string) (*model.Ticket, error) {
					return nil, roomserrors.ErrTicketNotFound
				},
			},
			wantCode: apperrors.CodeForbidden,
		},
		{
			name:       "reserved ticket not paid",
			ticketRepo: paidHotelTicket(model.TicketStatusReserved, false, true),
			wantCode:   apperrors.CodeForbidden,
		},
		{
			name:       "remote ticket",
			ticketRepo: paidHotelTicket(model.TicketStatusPaid, true, true),
			wantCode:   apperrors.CodeForbidden,
		},
		{
			name:       "ticket without hotel",
			ticketRepo: paidHotelTicket(model.TicketStatusPaid, false, false),
			wantCode:   apperrors.CodeForbidden,
		},
		{
			name:       "paid in-person hotel ticket",
			ticketRepo: paidHotelTicket(model.TicketStatusPaid, false, true),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(nil, nil, tt.enrRepo, tt.ticketRepo, nil, nil)

			err := svc.CheckEligibility(context.Background(), testUserID)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			assertAppErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestCheckRoomAvailability(t *testing.T) {
	tests := []struct {
		name      string
		roomRepo  *mockRoomRepository
		occupancy int64
		wantCode  string
	}{
		{
			name: "room not found",
			roomRepo: &mockRoomRepository{
				findByIDFunc: func(ctx context.Context, id string) (*model.Room, error) {
					return nil, roomserrors.ErrRoomNotFound
				},
			},
			wantCode: apperrors.CodeNotFound,
		},
		{
			name:      "room full",
			occupancy: 2,
			wantCode:  apperrors.CodeForbidden,
		},
		{
			name:      "room over capacity",
			occupancy: 3,
			wantCode:  apperrors.CodeForbidden,
		},
		{
			name:      "room available",
			occupancy: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockBookingRepository{
				countByRoomIDFunc: func(ctx context.Context, roomID string) (int64, error) {
					return tt.occupancy, nil
				},
			}
			svc := newTestService(repo, tt.roomRepo, nil, nil, nil, nil)

			err := svc.CheckRoomAvailability(context.Background(), testRoomID)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			assertAppErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestVerifyOwnership(t *testing.T) {
	tests := []struct {
		name      string
		repo      *mockBookingRepository
		bookingID string
		wantCode  string
	}{
		{
			name:      "user has no booking",
			repo:      &mockBookingRepository{},
			bookingID: "booking-1",
			wantCode:  apperrors.CodeForbidden,
		},
		{
			name: "booking belongs to someone else",
			repo: &mockBookingRepository{
				findByUserIDFunc: func(ctx context.Context, userID string) (*model.Booking, error) {
					return &model.Booking{ID: "booking-1", UserID: userID}, nil
				},
			},
			bookingID: "booking-2",
			wantCode:  apperrors.CodeForbidden,
		},
		{
			name: "booking belongs to user",
			repo: &mockBookingRepository{
				findByUserIDFunc: func(ctx context.Context, userID string) (*model.Booking, error) {
					return &model.Booking{ID: "booking-1", UserID: userID}, nil
				},
			},
			bookingID: "booking-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.repo, nil, nil, nil, nil, nil)

			err := svc.VerifyOwnership(context.Background(), testUserID, tt.bookingID)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			assertAppErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestUpsert_CreatesBooking(t *testing.T) {
	var insertedUserID, insertedRoomID string
	repo := &mockBookingRepository{
		insertFunc: func(ctx context.Context, userID, roomID string) (string, error) {
			insertedUserID = userID
			insertedRoomID = roomID
			return "new-booking-id", nil
		},
	}
	lockRepo := &mockRoomLockRepository{}
	publisher := &mockPublisher{}
	svc := newTestService(repo, nil, nil, nil, lockRepo, publisher)

	bookingID, err := svc.Upsert(context.Background(), testUserID, "", testRoomID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bookingID != "new-booking-id" {
		t.Errorf("expected new-booking-id, got %s", bookingID)
	}
	if insertedUserID != testUserID || insertedRoomID != testRoomID {
		t.Errorf("insert called with (%s, %s)", insertedUserID, insertedRoomID)
	}

	if len(publisher.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(publisher.published))
	}
	if got := publisher.published[0].GetEventType(); got != EventBookingCreated {
		t.Errorf("expected event type %s, got %s", EventBookingCreated, got)
	}
}

func TestUpsert_UpdatesBooking(t *testing.T) {
	var updatedBookingID string
	repo := &mockBookingRepository{
		updateRoomFunc: func(ctx context.Context, bookingID, userID, roomID string) error {
			updatedBookingID = bookingID
			return nil
		},
	}
	publisher := &mockPublisher{}
	svc := newTestService(repo, nil, nil, nil, nil, publisher)

	bookingID, err := svc.Upsert(context.Background(), testUserID, "booking-1", testRoomID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bookingID != "booking-1" {
		t.Errorf("expected booking-1, got %s", bookingID)
	}
	if updatedBookingID != "booking-1" {
		t.Errorf("update called with booking ID %s", updatedBookingID)
	}

	if len(publisher.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(publisher.published))
	}
	if got := publisher.published[0].GetEventType(); got != EventBookingUpdated {
		t.Errorf("expected event type %s, got %s", EventBookingUpdated, got)
	}
}

func TestUpsert_InvalidRoomID(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil, nil, nil)

	_, err := svc.Upsert(context.Background(), testUserID, "", "not-an-object-id")
	assertAppErrorCode(t, err, apperrors.CodeValidation)
}

func TestUpsert_LockContention(t *testing.T) {
	lockRepo := &mockRoomLockRepository{
		acquireFunc: func(ctx context.Context, lockID string) error {
			return roomserrors.ErrRoomLockHeld
		},
	}
	svc := newTestService(nil, nil, nil, nil, lockRepo, nil)

	_, err := svc.Upsert(context.Background(), testUserID, "", testRoomID)
	assertAppErrorCode(t, err, apperrors.CodeConflict)
}

func TestUpsert_ReleasesLockOnFailure(t *testing.T) {
	repo := &mockBookingRepository{
		countByRoomIDFunc: func(ctx context.Context, roomID string) (int64, error) {
			return 2, nil // room is full inside the transaction
		},
	}
	lockRepo := &mockRoomLockRepository{}
	svc := newTestService(repo, nil, nil, nil, lockRepo, nil)

	_, err := svc.Upsert(context.Background(), testUserID, "", testRoomID)
	assertAppErrorCode(t, err, apperrors.CodeForbidden)

	if len(lockRepo.acquired) != 1 || len(lockRepo.released) != 1 {
		t.Errorf("expected lock acquired and released once, got acquired=%d released=%d",
			len(lockRepo.acquired), len(lockRepo.released))
	}
	if lockRepo.acquired[0] != "room_lock_"+testRoomID {
		t.Errorf("unexpected lock ID %s", lockRepo.acquired[0])
	}
}

func TestUpsert_DuplicateBooking(t *testing.T) {
	repo := &mockBookingRepository{
		insertFunc: func(ctx context.Context, userID, roomID string) (string, error) {
			return "", roomserrors.ErrDuplicateBooking
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil, nil)

	_, err := svc.Upsert(context.Background(), testUserID, "", testRoomID)
	assertAppErrorCode(t, err, apperrors.CodeConflict)
}

func TestUpsert_UpdateMissingBooking(t *testing.T) {
	repo := &mockBookingRepository{
		updateRoomFunc: func(ctx context.Context, bookingID, userID, roomID string) error {
			return roomserrors.ErrBookingNotFound
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil, nil)

	_, err := svc.Upsert(context.Background(), testUserID, "booking-1", testRoomID)
	assertAppErrorCode(t, err, apperrors.CodeNotFound)
}

func TestUpsert_PublishFailureDoesNotFailBooking(t *testing.T) {
	publisher := &mockPublisher{err: errors.New("broker unavailable")}
	svc := newTestService(nil, nil, nil, nil, nil, publisher)

	bookingID, err := svc.Upsert(context.Background(), testUserID, "", testRoomID)
	if err != nil {
		t.Fatalf("publish failure must not fail the booking: %v", err)
	}
	if bookingID == "" {
		t.Error("expected booking ID despite publish failure")
	}
}
