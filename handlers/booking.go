package handlers

import (
	"errors"
	"net/http"

	"corvex/middleware"
	"corvex/models"
	"corvex/services/booking"
	"corvex/services/conversation"
	"corvex/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler adapts the booking service to the widget's JSON API. It
// also bridges a confirmed booking back into the chat transcript; the chat
// session id is the only value shared between the two services.
type BookingHandler struct {
	Booking      booking.BookingService
	Conversation conversation.ConversationService
}

func NewBookingHandler(b booking.BookingService, conv conversation.ConversationService) *BookingHandler {
	return &BookingHandler{Booking: b, Conversation: conv}
}

// OpenSchedulingHandler opens the scheduling modal and loads slots.
func (h *BookingHandler) OpenSchedulingHandler(c *gin.Context) {
	var input struct {
		SessionID string `json:"sessionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	state, err := h.Booking.OpenScheduling(c.Request.Context(), input.SessionID, middleware.DeviceFrom(c))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to open scheduling", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "state": state})
}

// SelectHandler records a date/time choice.
func (h *BookingHandler) SelectHandler(c *gin.Context) {
	var input struct {
		SessionID string `json:"sessionId" binding:"required"`
		Date      *int   `json:"date" binding:"required"`
		Slot      *int   `json:"slot" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	state, err := h.Booking.Select(c.Request.Context(), input.SessionID, *input.Date, *input.Slot)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid selection", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "state": state})
}

// ConfirmHandler validates and saves the appointment, then posts the
// confirmation message into the chat session.
func (h *BookingHandler) ConfirmHandler(c *gin.Context) {
	var input struct {
		SessionID string                 `json:"sessionId" binding:"required"`
		Form      models.AppointmentForm `json:"form" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	device := middleware.DeviceFrom(c)
	logger := utils.GetLogger()

	onSuccess := func(date, slotTime, email string) {
		// The transcript message must not block or fail the booking.
		if err := h.Conversation.AddSchedulingMessages(c.Request.Context(), input.SessionID, date, slotTime, email, device); err != nil {
			logger.Warn("failed to append confirmation message",
				zap.String("sessionId", input.SessionID), zap.String("date", date), zap.Error(err))
		}
	}

	result, err := h.Booking.ConfirmBooking(c.Request.Context(), input.SessionID, input.Form, device, middleware.TouchFrom(c), onSuccess)
	if errors.Is(err, booking.ErrSaving) {
		utils.JSONError(c, http.StatusConflict, "a booking is already being confirmed", "")
		return
	}
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to confirm booking", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": result.OK, "message": result.Message})
}

// SlotsHandler returns the current modal state.
func (h *BookingHandler) SlotsHandler(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		utils.JSONError(c, http.StatusBadRequest, "sessionId is required", "")
		return
	}

	state, err := h.Booking.State(c.Request.Context(), sessionID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to load booking state", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "state": state})
}

// CloseHandler tears the modal state down.
func (h *BookingHandler) CloseHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	if err := h.Booking.CloseScheduling(c.Request.Context(), sessionID); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to close scheduling", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
