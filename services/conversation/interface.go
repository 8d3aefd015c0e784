package conversation

import (
	"context"
	"errors"

	"corvex/models"
)

// ErrBusy is returned when a send for the same session is already in
// flight. The caller should simply drop the duplicate.
var ErrBusy = errors.New("conversation: send already in flight")

// ErrNoSession is returned for operations against an unknown session id.
var ErrNoSession = errors.New("conversation: no such session")

// ConversationService owns chat session identity, the transcript, the
// name-collection gate, AI dispatch and the scheduling-prompt heuristic.
type ConversationService interface {
	// Open restores the session identified by priorID when the chat-log
	// service still knows it, otherwise mints and persists a fresh one.
	Open(ctx context.Context, priorID string, device models.DeviceClass) (*models.ChatSessionState, error)

	// Send runs one user turn: name collection while ungated, otherwise an
	// AI round trip. Returns the updated state.
	Send(ctx context.Context, sessionID, input string, device models.DeviceClass) (*models.ChatSessionState, error)

	// AddSchedulingMessages appends the booking confirmation message and
	// clears the scheduling prompt.
	AddSchedulingMessages(ctx context.Context, sessionID, date, slotTime, email string, device models.DeviceClass) error

	// History returns the transcript for rendering.
	History(ctx context.Context, sessionID string) ([]models.Message, error)

	// Clear discards the session entirely; the next Open starts fresh.
	Clear(ctx context.Context, sessionID string) error
}

// SessionStore persists chat session state keyed by session id, plus one
// active-id record per client. Get returns (nil, nil) for an unknown id;
// ActiveID returns "" when the client has no active session. The active id
// and the session state it points at are set and cleared together, so at
// most one session is active per client.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*models.ChatSessionState, error)
	Set(ctx context.Context, state *models.ChatSessionState) error
	Clear(ctx context.Context, sessionID string) error

	ActiveID(ctx context.Context, clientKey string) (string, error)
	// SetActiveID records sessionID as the client's active session; an empty
	// sessionID drops the record.
	SetActiveID(ctx context.Context, clientKey, sessionID string) error
}

// AIClient is the outbound AI chat contract.
type AIClient interface {
	Chat(ctx context.Context, req models.AIChatRequest) (string, error)
}

// ChatLogClient persists individual messages and serves history. Log
// failures are treated as best-effort by callers.
type ChatLogClient interface {
	Log(ctx context.Context, entry models.ChatLogEntry) error
	History(ctx context.Context, sessionID string, limit int) ([]models.StoredMessage, error)
}
