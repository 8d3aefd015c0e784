package models

// TimeSlot is one bookable time within a day, e.g. "10:30".
type TimeSlot struct {
	Time string `json:"time"`
}

// DateSlot groups a day's bookable times. Date is an ISO day ("2006-01-02").
type DateSlot struct {
	Date  string     `json:"date"`
	Slots []TimeSlot `json:"slots"`
}

// Selection is an explicit date/time choice by index into the loaded slots.
// A nil *Selection means nothing has been chosen yet; index zero always
// means the first item, never "unset".
type Selection struct {
	Date int `json:"date"`
	Slot int `json:"slot"`
}

// BookingState is the per-session scheduling state. It is created when the
// scheduling modal opens and destroyed when it closes.
type BookingState struct {
	SessionID string     `json:"sessionId"`
	ModalOpen bool       `json:"modalOpen"`
	Slots     []DateSlot `json:"slots"`
	Selection *Selection `json:"selection,omitempty"`
	Loading   bool       `json:"loading"`
	Saving    bool       `json:"saving"`
}

// AppointmentForm carries the visitor's contact fields. Non-empty name and
// email are enforced by the appointments service, not here.
type AppointmentForm struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
	Interest string `json:"interest"`
}

// DeviceMeta rides along on appointment saves for downstream analytics.
type DeviceMeta struct {
	DeviceClass   string `json:"deviceClass"`
	TouchCapable  bool   `json:"touchCapable"`
	BookingMethod string `json:"bookingMethod"`
}

// AppointmentRequest is the outbound payload to the appointments service.
type AppointmentRequest struct {
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	Company       string     `json:"company,omitempty"`
	Interest      string     `json:"interest,omitempty"`
	Date          string     `json:"date"`
	Time          string     `json:"time"`
	ChatSessionID string     `json:"chatSessionId,omitempty"`
	Device        DeviceMeta `json:"device"`
}

type AvailabilityResponse struct {
	Success bool `json:"success"`
	Data    struct {
		AvailableSlots []DateSlot `json:"availableSlots"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// APIResult is the generic success envelope shared by the collaborator
// services' write endpoints.
type APIResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ReminderPayload is queued after a confirmed booking.
type ReminderPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}
