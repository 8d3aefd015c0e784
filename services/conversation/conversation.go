package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"corvex/models"
	"corvex/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	greetingMessage = "Hi there! Welcome to Corvex Consulting. Before we get started, could I have your first and last name?"
	nameRetryPrompt = "Sorry, I didn't catch that. Could you share your first and last name?"
	apologyMessage  = "Sorry, something went wrong on our end. Please try again in a moment."

	// How many stored messages the existence probe asks for.
	probeLimit = 1
	// How much history to reload on restore.
	historyLimit = 100
)

// Keywords that surface the scheduling prompt, matched case-insensitively
// against both the user input and the AI reply.
var schedulingKeywords = []string{
	"service", "solution", "help", "support", "consulting", "cybersecurity", "operations",
}

// DefaultConversationService is the production conversation controller.
type DefaultConversationService struct {
	Store     SessionStore
	AI        AIClient
	Logs      ChatLogClient
	ClientKey string

	// Policies overrides the default device behavior table when set.
	Policies map[models.DeviceClass]models.DevicePolicy

	mu       sync.Mutex
	inFlight map[string]bool
}

func (s *DefaultConversationService) policyFor(device models.DeviceClass) models.DevicePolicy {
	if s.Policies != nil {
		if p, ok := s.Policies[device]; ok {
			return p
		}
	}
	return models.PolicyFor(device)
}

func NewConversationService(store SessionStore, ai AIClient, logs ChatLogClient, clientKey string) *DefaultConversationService {
	return &DefaultConversationService{
		Store:     store,
		AI:        ai,
		Logs:      logs,
		ClientKey: clientKey,
		inFlight:  make(map[string]bool),
	}
}

// NewSessionID mints a session identifier of the form
// session_<unix-ms>_<random>.
func NewSessionID() string {
	random := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), random)
}

// Open validates priorID against the chat-log service and adopts it when at
// least one stored message exists; otherwise the stale id is discarded and
// a fresh session is created. The store's active-id record enforces one
// active session per client; setting a new id supersedes the old, never
// merges.
func (s *DefaultConversationService) Open(ctx context.Context, priorID string, device models.DeviceClass) (*models.ChatSessionState, error) {
	logger := utils.GetLogger()

	// A widget that lost its id can still pick up the client's active
	// session.
	if priorID == "" {
		if id, err := s.Store.ActiveID(ctx, s.ClientKey); err == nil && id != "" {
			priorID = id
		}
	}

	if priorID != "" {
		// A session we already hold state for is trusted as-is.
		if state, err := s.Store.Get(ctx, priorID); err == nil && state != nil {
			s.setActive(ctx, priorID)
			return state, nil
		}

		stored, err := s.Logs.History(ctx, priorID, probeLimit)
		if err != nil {
			logger.Warn("session probe failed, starting fresh",
				zap.String("sessionId", priorID), zap.Error(err))
		} else if len(stored) > 0 {
			return s.restore(ctx, priorID)
		}
		// Probe miss: supersede, never merge.
		if err := s.Store.Clear(ctx, priorID); err != nil {
			logger.Warn("failed to drop stale session", zap.String("sessionId", priorID), zap.Error(err))
		}
	}

	state := &models.ChatSessionState{
		SessionID: NewSessionID(),
		Phase:     models.PhaseAwaitingName,
	}
	state.Append(models.MessageAI, greetingMessage)
	if err := s.Store.Set(ctx, state); err != nil {
		return nil, fmt.Errorf("persist new session: %w", err)
	}
	s.setActive(ctx, state.SessionID)
	logger.Info("chat session created", zap.String("sessionId", state.SessionID))
	return state, nil
}

// setActive records sessionID as the client's single active session.
func (s *DefaultConversationService) setActive(ctx context.Context, sessionID string) {
	if err := s.Store.SetActiveID(ctx, s.ClientKey, sessionID); err != nil {
		utils.GetLogger().Warn("failed to record active session",
			zap.String("sessionId", sessionID), zap.Error(err))
	}
}

// restore rebuilds session state from the chat-log service.
func (s *DefaultConversationService) restore(ctx context.Context, sessionID string) (*models.ChatSessionState, error) {
	stored, err := s.Logs.History(ctx, sessionID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("reload history: %w", err)
	}

	state := &models.ChatSessionState{
		SessionID: sessionID,
		Phase:     models.PhaseAwaitingName,
	}
	for _, m := range stored {
		t := models.MessageAI
		if m.MessageType == string(models.MessageUser) {
			t = models.MessageUser
		}
		state.Append(t, m.Content)
		if m.UserInfo != "" && !state.NameCollected {
			state.UserName = m.UserInfo
			state.NameCollected = true
			state.Phase = models.PhaseConversing
		}
	}
	if len(state.Messages) == 0 {
		state.Append(models.MessageAI, greetingMessage)
	}
	if err := s.Store.Set(ctx, state); err != nil {
		return nil, fmt.Errorf("persist restored session: %w", err)
	}
	s.setActive(ctx, sessionID)
	utils.GetLogger().Info("chat session restored",
		zap.String("sessionId", sessionID), zap.Int("messages", len(state.Messages)))
	return state, nil
}

// Send processes one user turn. While the name is uncollected it only runs
// the name heuristic; afterwards it performs the AI round trip and the
// scheduling-prompt scan. A failure anywhere in the AI path degrades to an
// apology message in the transcript, never an error to the widget.
func (s *DefaultConversationService) Send(ctx context.Context, sessionID, input string, device models.DeviceClass) (*models.ChatSessionState, error) {
	input = strings.TrimSpace(input)
	state, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrNoSession
	}
	if input == "" {
		return state, nil
	}

	if !s.acquire(sessionID) {
		return nil, ErrBusy
	}
	defer s.release(sessionID)

	// Optimistic append of the user message.
	state.Append(models.MessageUser, input)

	if !state.NameCollected {
		s.collectName(ctx, state, input, device)
	} else {
		s.converse(ctx, state, input, device)
	}

	if err := s.Store.Set(ctx, state); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return state, nil
}

// collectName handles the gating phase before any AI call is made.
func (s *DefaultConversationService) collectName(ctx context.Context, state *models.ChatSessionState, input string, device models.DeviceClass) {
	name, ok := parseName(input, s.policyFor(device))
	if !ok {
		state.Append(models.MessageAI, nameRetryPrompt)
		s.log(ctx, state, models.MessageAI, nameRetryPrompt, device)
		return
	}

	state.UserName = name.DisplayName()
	state.NameCollected = true
	state.Phase = models.PhaseConversing
	ack := fmt.Sprintf("Nice to meet you, %s! How can we help you today?", name.First)
	state.Append(models.MessageAI, ack)

	s.log(ctx, state, models.MessageUser, input, device)
	s.log(ctx, state, models.MessageAI, ack, device)
}

// converse runs the AI round trip for a collected-name session.
func (s *DefaultConversationService) converse(ctx context.Context, state *models.ChatSessionState, input string, device models.DeviceClass) {
	s.log(ctx, state, models.MessageUser, input, device)

	reply, err := s.AI.Chat(ctx, models.AIChatRequest{
		ClientID:   s.ClientKey,
		Query:      input,
		SessionID:  state.SessionID,
		UserName:   state.UserName,
		DeviceType: string(device),
	})
	if err != nil {
		utils.GetLogger().Error("ai chat failed",
			zap.String("sessionId", state.SessionID), zap.Error(err))
		state.Append(models.MessageAI, apologyMessage)
		s.log(ctx, state, models.MessageAI, apologyMessage, device)
		return
	}

	state.Append(models.MessageAI, reply)
	s.log(ctx, state, models.MessageAI, reply, device)

	// The prompt fires at most once per session: the flag only ever moves
	// false -> true.
	if !state.PromptShown && state.NameCollected && matchesSchedulingKeyword(input, reply) {
		state.PromptShown = true
	}
}

// AddSchedulingMessages appends the device-keyed booking confirmation and
// clears the scheduling prompt.
func (s *DefaultConversationService) AddSchedulingMessages(ctx context.Context, sessionID, date, slotTime, email string, device models.DeviceClass) error {
	state, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if state == nil {
		return ErrNoSession
	}

	pol := s.policyFor(device)
	msg := fmt.Sprintf(pol.ConfirmTemplate, utils.FormatLongDate(date), slotTime, email)
	state.Append(models.MessageAI, msg)
	state.PromptShown = false
	s.log(ctx, state, models.MessageAI, msg, device)

	return s.Store.Set(ctx, state)
}

// History returns the transcript for a session.
func (s *DefaultConversationService) History(ctx context.Context, sessionID string) ([]models.Message, error) {
	state, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrNoSession
	}
	return state.Messages, nil
}

// Clear discards all state for a session, dropping the client's active-id
// record together with it.
func (s *DefaultConversationService) Clear(ctx context.Context, sessionID string) error {
	if id, err := s.Store.ActiveID(ctx, s.ClientKey); err == nil && id == sessionID {
		if err := s.Store.SetActiveID(ctx, s.ClientKey, ""); err != nil {
			return fmt.Errorf("drop active session id: %w", err)
		}
	}
	return s.Store.Clear(ctx, sessionID)
}

// log persists one message to the chat-log service, best effort.
func (s *DefaultConversationService) log(ctx context.Context, state *models.ChatSessionState, t models.MessageType, content string, device models.DeviceClass) {
	entry := models.ChatLogEntry{
		ClientID:    s.ClientKey,
		SessionID:   state.SessionID,
		MessageType: string(t),
		Content:     content,
		UserInfo:    state.UserName,
		DeviceType:  string(device),
		Timestamp:   time.Now().UTC(),
	}
	if err := s.Logs.Log(ctx, entry); err != nil {
		utils.GetLogger().Warn("chat log write failed",
			zap.String("sessionId", state.SessionID), zap.Error(err))
	}
}

func (s *DefaultConversationService) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight == nil {
		s.inFlight = make(map[string]bool)
	}
	if s.inFlight[sessionID] {
		return false
	}
	s.inFlight[sessionID] = true
	return true
}

func (s *DefaultConversationService) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}

func matchesSchedulingKeyword(texts ...string) bool {
	for _, t := range texts {
		lower := strings.ToLower(t)
		for _, kw := range schedulingKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}
