package validator

import (
	"io"
	"strings"
	"testing"

	"roomsvc/pkg/logger"
	"roomsvc/pkg/model"
)

func newTestValidator() *BookingValidator {
	log := logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
		Output:    io.Discard,
	})
	return NewBookingValidator(log)
}

func TestValidateBookingRequest(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name      string
		roomID    string
		wantError bool
		wantField string
	}{
		{
			name:   "valid object id",
			roomID: "507f1f77bcf86cd799439011",
		},
		{
			name:      "empty room id",
			roomID:    "",
			wantError: true,
			wantField: "RoomID",
		},
		{
			name:      "too short",
			roomID:    "507f1f77",
			wantError: true,
			wantField: "RoomID",
		},
		{
			name:      "non-hex characters",
			roomID:    "507f1f77bcf86cd79943901z",
			wantError: true,
			wantField: "RoomID",
		},
		{
			name:      "too long",
			roomID:    "507f1f77bcf86cd7994390111",
			wantError: true,
			wantField: "RoomID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&model.BookingRequest{RoomID: tt.roomID})

			if !tt.wantError {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("expected error mentioning %s, got: %v", tt.wantField, err)
			}
		})
	}
}
