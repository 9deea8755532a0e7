package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"roomsvc/internal/rooms/service"
	apperrors "roomsvc/pkg/errors"
	httputil "roomsvc/pkg/http"
	"roomsvc/pkg/logger"
	"roomsvc/pkg/middleware"
	"roomsvc/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

// Get returns the caller's booking joined with its room.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		h.writeError(w, "Get", apperrors.Unauthorized("Missing authenticated user"))
		return
	}

	booking, err := h.service.GetByUserID(r.Context(), userID)
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

// Create books a room for the caller. Eligibility and availability are
// checked before the write; availability is re-checked atomically inside
// the upsert.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		h.writeError(w, "Create", apperrors.Unauthorized("Missing authenticated user"))
		return
	}

	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.CheckEligibility(r.Context(), userID); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.CheckRoomAvailability(r.Context(), req.RoomID); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	bookingID, err := h.service.Upsert(r.Context(), userID, "", req.RoomID)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteSuccess(w, model.BookingResponse{BookingID: bookingID}); err != nil {
		h.log.Error("failed to write success response", "handler", "Create", "operation", "WriteSuccess", "error", err)
	}
}

// Update moves the caller's booking to a different room. On top of the
// create checks it verifies the booking in the path belongs to the caller.
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		h.writeError(w, "Update", apperrors.Unauthorized("Missing authenticated user"))
		return
	}

	bookingID := ps.ByName("id")

	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.CheckEligibility(r.Context(), userID); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := h.service.CheckRoomAvailability(r.Context(), req.RoomID); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := h.service.VerifyOwnership(r.Context(), userID, bookingID); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	resultID, err := h.service.Upsert(r.Context(), userID, bookingID, req.RoomID)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, model.BookingResponse{BookingID: resultID}); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/bookings", h.Get)
	router.POST("/api/v1/bookings", h.Create)
	router.PUT("/api/v1/bookings/:id", h.Update)
}
