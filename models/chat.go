package models

import "time"

type MessageType string

const (
	MessageUser MessageType = "user"
	MessageAI   MessageType = "ai"
)

// Message is one entry in a session transcript. The transcript is
// append-only; insertion order is conversation order.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
}

// Phase is the conversational stage of an active session.
type Phase string

const (
	// PhaseAwaitingName gates every AI call until a usable name arrives.
	PhaseAwaitingName Phase = "awaiting_name"
	PhaseConversing   Phase = "conversing"
)

// ChatSessionState is the full per-session conversation state kept in the
// session store. Exactly one session is active per widget; a stale id is
// superseded on restore, never merged.
type ChatSessionState struct {
	SessionID     string    `json:"sessionId"`
	Messages      []Message `json:"messages"`
	UserName      string    `json:"userName,omitempty"`
	NameCollected bool      `json:"nameCollected"`
	PromptShown   bool      `json:"schedulingPromptShown"`
	Phase         Phase     `json:"phase"`
}

// Append adds a message to the transcript.
func (s *ChatSessionState) Append(t MessageType, content string) {
	s.Messages = append(s.Messages, Message{Type: t, Content: content})
}

// ChatLogEntry is one persisted message in the chat-log service contract.
type ChatLogEntry struct {
	ClientID    string    `json:"clientId"`
	SessionID   string    `json:"sessionId"`
	MessageType string    `json:"messageType"`
	Content     string    `json:"content"`
	UserInfo    string    `json:"userInfo,omitempty"`
	DeviceType  string    `json:"deviceType"`
	Timestamp   time.Time `json:"timestamp"`
}

// StoredMessage is a message as returned by the chat-log history endpoint.
type StoredMessage struct {
	MessageType string `json:"messageType"`
	Content     string `json:"content"`
	UserInfo    string `json:"userInfo,omitempty"`
}

type ChatLogListResponse struct {
	Success bool            `json:"success"`
	Data    []StoredMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// AIChatRequest is the outbound payload to the AI endpoint.
type AIChatRequest struct {
	ClientID   string `json:"clientId"`
	Query      string `json:"query"`
	SessionID  string `json:"sessionId"`
	UserName   string `json:"userName"`
	DeviceType string `json:"deviceType"`
}

type AIChatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}
