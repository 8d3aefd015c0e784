package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"corvex/models"
	"corvex/utils"

	"go.uber.org/zap"
)

// DefaultBookingService is the production scheduling controller.
type DefaultBookingService struct {
	Store        BookingStore
	Availability AvailabilityClient
	Appointments AppointmentClient
	Reminders    ReminderScheduler // optional, may be nil
	Days         int

	// Policies overrides the default device behavior table when set.
	Policies map[models.DeviceClass]models.DevicePolicy

	mu     sync.Mutex
	saving map[string]bool
}

func (s *DefaultBookingService) policyFor(device models.DeviceClass) models.DevicePolicy {
	if s.Policies != nil {
		if p, ok := s.Policies[device]; ok {
			return p
		}
	}
	return models.PolicyFor(device)
}

func NewBookingService(store BookingStore, avail AvailabilityClient, appts AppointmentClient, reminders ReminderScheduler, days int) *DefaultBookingService {
	if days <= 0 {
		days = 14
	}
	return &DefaultBookingService{
		Store:        store,
		Availability: avail,
		Appointments: appts,
		Reminders:    reminders,
		Days:         days,
		saving:       make(map[string]bool),
	}
}

// OpenScheduling opens the modal and loads slots. Compact devices delay
// the load slightly so the modal animation settles first.
func (s *DefaultBookingService) OpenScheduling(ctx context.Context, sessionID string, device models.DeviceClass) (*models.BookingState, error) {
	pol := s.policyFor(device)

	state := &models.BookingState{SessionID: sessionID, ModalOpen: true, Loading: true}
	if err := s.Store.Set(ctx, state); err != nil {
		return nil, fmt.Errorf("persist booking state: %w", err)
	}

	if pol.SlotLoadDelay > 0 {
		select {
		case <-time.After(pol.SlotLoadDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	slots := s.loadSlots(ctx, device)
	state.Slots = slots
	state.Loading = false
	if err := s.Store.Set(ctx, state); err != nil {
		return nil, fmt.Errorf("persist booking state: %w", err)
	}
	return state, nil
}

// loadSlots runs the device retry policy against the availability service.
// Exhausted retries degrade to an empty slot list; the caller sees the
// hard empty state, never an error.
func (s *DefaultBookingService) loadSlots(ctx context.Context, device models.DeviceClass) []models.DateSlot {
	logger := utils.GetLogger()
	devicePol := s.policyFor(device)
	pol := devicePol.SlotFetch

	for attempt := 1; attempt <= pol.MaxRetries; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, pol.Timeout)
		slots, err := s.Availability.Check(cctx, s.Days)
		cancel()
		if err == nil {
			return truncateSlots(slots, devicePol.MaxSlotsPerDay)
		}

		logger.Warn("availability fetch failed",
			zap.Int("attempt", attempt), zap.Int("maxRetries", pol.MaxRetries), zap.Error(err))

		if attempt < pol.MaxRetries {
			select {
			case <-time.After(pol.Delay):
			case <-ctx.Done():
				return nil
			}
		}
	}
	return nil
}

// truncateSlots caps each day's list per device policy. Zero means
// unbounded. This is a view-capacity decision applied after the fetch, not
// a data invariant.
func truncateSlots(slots []models.DateSlot, maxPerDay int) []models.DateSlot {
	if maxPerDay <= 0 {
		return slots
	}
	out := make([]models.DateSlot, 0, len(slots))
	for _, day := range slots {
		if len(day.Slots) > maxPerDay {
			day.Slots = day.Slots[:maxPerDay]
		}
		out = append(out, day)
	}
	return out
}

// Select records an explicit slot choice.
func (s *DefaultBookingService) Select(ctx context.Context, sessionID string, dateIdx, slotIdx int) (*models.BookingState, error) {
	state, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil || !state.ModalOpen {
		return nil, fmt.Errorf("booking: scheduling is not open for session %s", sessionID)
	}
	if dateIdx < 0 || dateIdx >= len(state.Slots) {
		return nil, fmt.Errorf("booking: date index %d out of range", dateIdx)
	}
	if slotIdx < 0 || slotIdx >= len(state.Slots[dateIdx].Slots) {
		return nil, fmt.Errorf("booking: slot index %d out of range", slotIdx)
	}

	state.Selection = &models.Selection{Date: dateIdx, Slot: slotIdx}
	if err := s.Store.Set(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Validate is the pure precondition check: first-applicable device message
// for "no slots" then "no selection"; empty string when the flow is valid.
func Validate(state *models.BookingState, pol models.DevicePolicy) string {
	if state == nil || len(state.Slots) == 0 {
		return pol.NoSlotsMsg
	}
	if state.Selection == nil {
		return pol.NoSelectionMsg
	}
	return ""
}

// ConfirmBooking validates the flow, saves the appointment with a
// device-bounded timeout, fires the success callback and closes the modal.
func (s *DefaultBookingService) ConfirmBooking(ctx context.Context, sessionID string, form models.AppointmentForm, device models.DeviceClass, touch bool, onSuccess ConfirmCallback) (ConfirmResult, error) {
	if !s.acquire(sessionID) {
		return ConfirmResult{}, ErrSaving
	}
	defer s.release(sessionID)

	logger := utils.GetLogger()
	pol := s.policyFor(device)

	state, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if msg := Validate(state, pol); msg != "" {
		return ConfirmResult{OK: false, Message: msg}, nil
	}

	day := state.Slots[state.Selection.Date]
	slot := day.Slots[state.Selection.Slot]

	state.Saving = true
	if err := s.Store.Set(ctx, state); err != nil {
		return ConfirmResult{}, err
	}

	method := "click"
	if touch {
		method = "tap"
	}
	req := models.AppointmentRequest{
		Name:          form.Name,
		Email:         form.Email,
		Phone:         form.Phone,
		Company:       form.Company,
		Interest:      form.Interest,
		Date:          day.Date,
		Time:          slot.Time,
		ChatSessionID: sessionID,
		Device: models.DeviceMeta{
			DeviceClass:   string(device),
			TouchCapable:  touch,
			BookingMethod: method,
		},
	}

	sctx, cancel := context.WithTimeout(ctx, pol.SaveTimeout)
	err = s.Appointments.Save(sctx, req)
	cancel()
	if err != nil {
		logger.Error("appointment save failed",
			zap.String("sessionId", sessionID), zap.String("date", day.Date), zap.Error(err))
		state.Saving = false
		_ = s.Store.Set(ctx, state)
		return ConfirmResult{OK: false, Message: pol.SaveFailureMsg}, nil
	}

	// The in-progress flag must settle before the delayed teardown so a
	// state poll during the confirmation-render window sees an idle modal.
	state.Saving = false
	if err := s.Store.Set(ctx, state); err != nil {
		logger.Warn("failed to persist settled booking state",
			zap.String("sessionId", sessionID), zap.Error(err))
	}

	logger.Info("appointment saved",
		zap.String("sessionId", sessionID),
		zap.String("date", day.Date), zap.String("time", slot.Time))

	if onSuccess != nil {
		onSuccess(day.Date, slot.Time, form.Email)
	}

	if s.Reminders != nil {
		p := models.ReminderPayload{Name: form.Name, Email: form.Email, Date: day.Date, Time: slot.Time}
		if err := s.Reminders.Schedule(ctx, p); err != nil {
			logger.Warn("reminder scheduling failed", zap.String("email", form.Email), zap.Error(err))
		}
	}

	s.closeAfter(sessionID, pol.ModalCloseDelay)
	return ConfirmResult{OK: true}, nil
}

// closeAfter tears down modal state, either immediately or once the
// confirmation has had time to render.
func (s *DefaultBookingService) closeAfter(sessionID string, delay time.Duration) {
	if delay <= 0 {
		_ = s.Store.Clear(context.Background(), sessionID)
		return
	}
	time.AfterFunc(delay, func() {
		_ = s.Store.Clear(context.Background(), sessionID)
	})
}

// CloseScheduling destroys the modal state along with any selection.
func (s *DefaultBookingService) CloseScheduling(ctx context.Context, sessionID string) error {
	return s.Store.Clear(ctx, sessionID)
}

// State returns the current modal state, nil when none exists.
func (s *DefaultBookingService) State(ctx context.Context, sessionID string) (*models.BookingState, error) {
	return s.Store.Get(ctx, sessionID)
}

func (s *DefaultBookingService) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saving == nil {
		s.saving = make(map[string]bool)
	}
	if s.saving[sessionID] {
		return false
	}
	s.saving[sessionID] = true
	return true
}

func (s *DefaultBookingService) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saving, sessionID)
}
