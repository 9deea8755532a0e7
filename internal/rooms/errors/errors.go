// Package errors defines sentinel errors for the rooms context. Repositories
// return these; the service layer translates them into transport errors.
package errors

import "errors"

var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrRoomLockHeld       = errors.New("room lock already held")
	ErrDuplicateBooking   = errors.New("user already has a booking")
)
