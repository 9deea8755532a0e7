package model

import "time"

// Booking is a hotel room booking held by a user. A user holds at most one
// booking at a time.
type Booking struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	RoomID    string    `bson:"room_id" json:"room_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// BookingWithRoom is a booking joined with its room document.
type BookingWithRoom struct {
	Booking `bson:",inline"`
	Room    Room `bson:"room" json:"room"`
}

// BookingRequest is the payload for creating or moving a booking.
type BookingRequest struct {
	RoomID string `json:"room_id" validate:"required,mongodb"`
}

// BookingResponse is returned from the create and update endpoints.
type BookingResponse struct {
	BookingID string `json:"booking_id"`
}
