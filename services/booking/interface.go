package booking

import (
	"context"
	"errors"

	"corvex/models"
)

// ErrSaving is returned when a confirmation for the same session is
// already running.
var ErrSaving = errors.New("booking: confirmation already in progress")

// ConfirmCallback receives the chosen ISO day, time and the visitor's
// email after a successful save. Day-name formatting is applied by the
// consumer so all confirmation surfaces format dates the same way.
type ConfirmCallback func(date, slotTime, email string)

// ConfirmResult tells the widget what happened to a confirmation attempt.
type ConfirmResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// BookingService owns slot retrieval, selection state and appointment
// persistence for the scheduling modal.
type BookingService interface {
	// OpenScheduling opens the modal for a session and loads slots,
	// honoring the device's load-delay smoothing.
	OpenScheduling(ctx context.Context, sessionID string, device models.DeviceClass) (*models.BookingState, error)

	// Select records an explicit date/time choice.
	Select(ctx context.Context, sessionID string, dateIdx, slotIdx int) (*models.BookingState, error)

	// ConfirmBooking validates, saves, fires onSuccess and closes the
	// modal. A validation or save failure comes back in the result, not as
	// an error. touch feeds the analytics block of the saved appointment.
	ConfirmBooking(ctx context.Context, sessionID string, form models.AppointmentForm, device models.DeviceClass, touch bool, onSuccess ConfirmCallback) (ConfirmResult, error)

	// CloseScheduling tears the modal state down.
	CloseScheduling(ctx context.Context, sessionID string) error

	// State returns the current modal state for rendering.
	State(ctx context.Context, sessionID string) (*models.BookingState, error)
}

// BookingStore persists per-session scheduling state. Get returns
// (nil, nil) for an unknown session.
type BookingStore interface {
	Get(ctx context.Context, sessionID string) (*models.BookingState, error)
	Set(ctx context.Context, state *models.BookingState) error
	Clear(ctx context.Context, sessionID string) error
}

// AvailabilityClient fetches open slots from the scheduling backend.
type AvailabilityClient interface {
	Check(ctx context.Context, days int) ([]models.DateSlot, error)
}

// AppointmentClient persists a confirmed appointment.
type AppointmentClient interface {
	Save(ctx context.Context, req models.AppointmentRequest) error
}

// ReminderScheduler queues a post-booking reminder. Implementations must
// tolerate being nil-checked out by callers.
type ReminderScheduler interface {
	Schedule(ctx context.Context, p models.ReminderPayload) error
}
