package models

import "time"

// DeviceClass drives timing and capacity policy only, never business logic.
type DeviceClass string

const (
	DeviceCompact DeviceClass = "compact"
	DeviceMedium  DeviceClass = "medium"
	DeviceFull    DeviceClass = "full"
)

// ParseDeviceClass accepts both the canonical names and the legacy
// mobile/tablet/desktop spellings still sent by older widget builds.
// Unknown input falls back to the full profile.
func ParseDeviceClass(s string) DeviceClass {
	switch s {
	case "compact", "mobile":
		return DeviceCompact
	case "medium", "tablet":
		return DeviceMedium
	case "full", "desktop":
		return DeviceFull
	default:
		return DeviceFull
	}
}

// RetryPolicy bounds one remote fetch: MaxRetries is the total attempt
// count, Delay the pause between attempts, Timeout the per-attempt bound.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
	Timeout    time.Duration
}

// DevicePolicy is the single behavior table for one device class. Both the
// conversation and booking services take their knobs from here so UI and
// logic cannot drift apart.
type DevicePolicy struct {
	SlotFetch      RetryPolicy
	MaxSlotsPerDay int // 0 means unbounded
	SaveTimeout    time.Duration

	// Name heuristics: a single-token name is accepted only at this length
	// or longer. Two-token inputs are always treated as first+last.
	MinSingleTokenLen int

	// UX smoothing, no correctness impact.
	SlotLoadDelay   time.Duration
	ModalCloseDelay time.Duration

	// Device-keyed user-facing text. ConfirmTemplate takes day name, time
	// and email in that order.
	ConfirmTemplate string
	SaveFailureMsg  string
	NoSlotsMsg      string
	NoSelectionMsg  string
}

var defaultPolicies = map[DeviceClass]DevicePolicy{
	DeviceCompact: {
		SlotFetch:         RetryPolicy{MaxRetries: 2, Delay: 2 * time.Second, Timeout: 8 * time.Second},
		MaxSlotsPerDay:    3,
		SaveTimeout:       12 * time.Second,
		MinSingleTokenLen: 2,
		SlotLoadDelay:     300 * time.Millisecond,
		ModalCloseDelay:   0,
		ConfirmTemplate:   "You're booked! %s at %s. A confirmation is on its way to %s.",
		SaveFailureMsg:    "We couldn't save your booking. Please check your connection and try again.",
		NoSlotsMsg:        "No open times right now. Tap retry or message us instead.",
		NoSelectionMsg:    "Pick a date and time first.",
	},
	DeviceMedium: {
		SlotFetch:         RetryPolicy{MaxRetries: 3, Delay: 1500 * time.Millisecond, Timeout: 6 * time.Second},
		MaxSlotsPerDay:    5,
		SaveTimeout:       10 * time.Second,
		MinSingleTokenLen: 3,
		SlotLoadDelay:     0,
		ModalCloseDelay:   1200 * time.Millisecond,
		ConfirmTemplate:   "Your consultation is confirmed for %s at %s. We've emailed the details to %s.",
		SaveFailureMsg:    "Something went wrong while saving your booking. Please try again.",
		NoSlotsMsg:        "No appointment slots are available at the moment. Please try again shortly.",
		NoSelectionMsg:    "Please select a date and a time before confirming.",
	},
	DeviceFull: {
		SlotFetch:         RetryPolicy{MaxRetries: 4, Delay: time.Second, Timeout: 5 * time.Second},
		MaxSlotsPerDay:    0,
		SaveTimeout:       8 * time.Second,
		MinSingleTokenLen: 3,
		SlotLoadDelay:     0,
		ModalCloseDelay:   1200 * time.Millisecond,
		ConfirmTemplate:   "Great news! Your consultation is locked in for %s at %s. A confirmation email with the meeting link has been sent to %s.",
		SaveFailureMsg:    "We hit a snag saving your booking. Please try again, or reach out through the chat and we'll sort it out.",
		NoSlotsMsg:        "No appointment slots are currently available. Please check back soon or ask us in the chat.",
		NoSelectionMsg:    "Please choose both a date and a time slot before confirming your booking.",
	},
}

// PolicyFor returns the behavior table entry for the given device class.
func PolicyFor(d DeviceClass) DevicePolicy {
	if p, ok := defaultPolicies[d]; ok {
		return p
	}
	return defaultPolicies[DeviceFull]
}
