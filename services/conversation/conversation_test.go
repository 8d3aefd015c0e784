package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"corvex/models"
)

type fakeAI struct {
	mu      sync.Mutex
	calls   int
	reply   string
	err     error
	started chan struct{} // closed on first call, when set
	release chan struct{} // blocks the call until closed, when set
}

func (f *fakeAI) Chat(ctx context.Context, req models.AIChatRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()

	if first && f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []models.ChatLogEntry
	history map[string][]models.StoredMessage
	histErr error
}

func (f *fakeLogs) Log(ctx context.Context, entry models.ChatLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLogs) History(ctx context.Context, sessionID string, limit int) ([]models.StoredMessage, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[sessionID], nil
}

func newTestService(ai *fakeAI, logs *fakeLogs) *DefaultConversationService {
	return NewConversationService(NewMemorySessionStore(), ai, logs, "corvex-test")
}

func TestOpenCreatesFreshSession(t *testing.T) {
	svc := newTestService(&fakeAI{}, &fakeLogs{})

	state, err := svc.Open(context.Background(), "", models.DeviceFull)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !strings.HasPrefix(state.SessionID, "session_") {
		t.Fatalf("unexpected session id %q", state.SessionID)
	}
	if state.Phase != models.PhaseAwaitingName {
		t.Fatalf("expected awaiting_name phase, got %q", state.Phase)
	}
	if len(state.Messages) != 1 || state.Messages[0].Type != models.MessageAI {
		t.Fatalf("expected a single greeting message, got %+v", state.Messages)
	}
}

func TestOpenRestoresKnownSession(t *testing.T) {
	logs := &fakeLogs{history: map[string][]models.StoredMessage{
		"session_1_abc": {
			{MessageType: "ai", Content: "Hi there!"},
			{MessageType: "user", Content: "Jane Doe", UserInfo: "Jane Doe"},
			{MessageType: "ai", Content: "Nice to meet you, Jane!"},
		},
	}}
	svc := newTestService(&fakeAI{}, logs)

	state, err := svc.Open(context.Background(), "session_1_abc", models.DeviceCompact)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if state.SessionID != "session_1_abc" {
		t.Fatalf("expected restored id, got %q", state.SessionID)
	}
	if len(state.Messages) != 3 {
		t.Fatalf("expected 3 restored messages, got %d", len(state.Messages))
	}
	if !state.NameCollected || state.UserName != "Jane Doe" {
		t.Fatalf("expected name restored from history, got %+v", state)
	}
	if state.Phase != models.PhaseConversing {
		t.Fatalf("expected conversing phase, got %q", state.Phase)
	}
}

func TestOpenDiscardsStaleSession(t *testing.T) {
	svc := newTestService(&fakeAI{}, &fakeLogs{history: map[string][]models.StoredMessage{}})

	state, err := svc.Open(context.Background(), "session_1_gone", models.DeviceFull)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if state.SessionID == "session_1_gone" {
		t.Fatal("stale session id should have been superseded")
	}
	if got, _ := svc.Store.Get(context.Background(), "session_1_gone"); got != nil {
		t.Fatal("stale session state should be cleared")
	}
	if id, _ := svc.Store.ActiveID(context.Background(), "corvex-test"); id != state.SessionID {
		t.Fatalf("active id should point at the superseding session, got %q", id)
	}
}

func TestActiveSessionTracksOpenAndClear(t *testing.T) {
	svc := newTestService(&fakeAI{}, &fakeLogs{})

	state, _ := svc.Open(context.Background(), "", models.DeviceFull)
	if id, _ := svc.Store.ActiveID(context.Background(), "corvex-test"); id != state.SessionID {
		t.Fatalf("active id %q, want %q", id, state.SessionID)
	}

	// A widget that lost its id picks the client's active session back up.
	again, err := svc.Open(context.Background(), "", models.DeviceFull)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if again.SessionID != state.SessionID {
		t.Fatalf("expected active session reuse, got %q", again.SessionID)
	}

	// Clear drops the state and the active id together.
	if err := svc.Clear(context.Background(), state.SessionID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if id, _ := svc.Store.ActiveID(context.Background(), "corvex-test"); id != "" {
		t.Fatalf("active id should be dropped with the session, got %q", id)
	}
	fresh, _ := svc.Open(context.Background(), "", models.DeviceFull)
	if fresh.SessionID == state.SessionID {
		t.Fatal("a cleared session must not come back")
	}
}

func TestOpenSurvivesProbeFailure(t *testing.T) {
	svc := newTestService(&fakeAI{}, &fakeLogs{histErr: errors.New("backend down")})

	state, err := svc.Open(context.Background(), "session_1_old", models.DeviceFull)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if state.SessionID == "session_1_old" {
		t.Fatal("expected a fresh session when the probe fails")
	}
}

func TestSendCollectsNameBeforeAnyAICall(t *testing.T) {
	ai := &fakeAI{reply: "hello"}
	svc := newTestService(ai, &fakeLogs{})

	state, _ := svc.Open(context.Background(), "", models.DeviceFull)

	state, err := svc.Send(context.Background(), state.SessionID, "Jane Doe", models.DeviceFull)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if ai.callCount() != 0 {
		t.Fatal("name collection turn must not call the AI service")
	}
	if !state.NameCollected || state.UserName != "Jane Doe" {
		t.Fatalf("expected name collected, got %+v", state)
	}
	last := state.Messages[len(state.Messages)-1]
	if last.Type != models.MessageAI || !strings.Contains(last.Content, "Jane") {
		t.Fatalf("expected acknowledgment mentioning the first name, got %+v", last)
	}

	// The next turn goes to the AI.
	if _, err := svc.Send(context.Background(), state.SessionID, "tell me more", models.DeviceFull); err != nil {
		t.Fatalf("send: %v", err)
	}
	if ai.callCount() != 1 {
		t.Fatalf("expected one AI call, got %d", ai.callCount())
	}
}

func TestSendRepromptsOnUnusableName(t *testing.T) {
	ai := &fakeAI{reply: "hello"}
	svc := newTestService(ai, &fakeLogs{})

	state, _ := svc.Open(context.Background(), "", models.DeviceCompact)
	state, err := svc.Send(context.Background(), state.SessionID, "?", models.DeviceCompact)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if state.NameCollected {
		t.Fatal("name should not be collected from punctuation")
	}
	if ai.callCount() != 0 {
		t.Fatal("retry prompt must not call the AI service")
	}
	last := state.Messages[len(state.Messages)-1]
	if last.Type != models.MessageAI || !strings.Contains(last.Content, "first and last name") {
		t.Fatalf("expected a retry prompt, got %+v", last)
	}
}

func TestSendGuardsAgainstConcurrentSends(t *testing.T) {
	ai := &fakeAI{
		reply:   "hello",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestService(ai, &fakeLogs{})

	state, _ := svc.Open(context.Background(), "", models.DeviceFull)
	if _, err := svc.Send(context.Background(), state.SessionID, "Jane Doe", models.DeviceFull); err != nil {
		t.Fatalf("send: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Send(context.Background(), state.SessionID, "first question", models.DeviceFull)
		done <- err
	}()

	select {
	case <-ai.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first send never reached the AI client")
	}

	if _, err := svc.Send(context.Background(), state.SessionID, "second question", models.DeviceFull); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(ai.release)
	if err := <-done; err != nil {
		t.Fatalf("first send: %v", err)
	}
	if ai.callCount() != 1 {
		t.Fatalf("expected exactly one AI call, got %d", ai.callCount())
	}
}

func TestSendDegradesToApologyOnAIFailure(t *testing.T) {
	ai := &fakeAI{err: errors.New("upstream 500")}
	svc := newTestService(ai, &fakeLogs{})

	state, _ := svc.Open(context.Background(), "", models.DeviceFull)
	state, _ = svc.Send(context.Background(), state.SessionID, "Jane Doe", models.DeviceFull)

	state, err := svc.Send(context.Background(), state.SessionID, "anything", models.DeviceFull)
	if err != nil {
		t.Fatalf("send should degrade, not fail: %v", err)
	}
	last := state.Messages[len(state.Messages)-1]
	if last.Type != models.MessageAI || !strings.Contains(last.Content, "Sorry") {
		t.Fatalf("expected an apology message, got %+v", last)
	}

	// Conversation stays usable: the guard was released.
	ai.err = nil
	ai.reply = "recovered"
	state, err = svc.Send(context.Background(), state.SessionID, "again", models.DeviceFull)
	if err != nil {
		t.Fatalf("send after failure: %v", err)
	}
	if got := state.Messages[len(state.Messages)-1].Content; got != "recovered" {
		t.Fatalf("expected recovered reply, got %q", got)
	}
}

func TestSchedulingPromptFiresAtMostOnce(t *testing.T) {
	ai := &fakeAI{reply: "We offer security assessments."}
	svc := newTestService(ai, &fakeLogs{})

	state, _ := svc.Open(context.Background(), "", models.DeviceFull)
	state, _ = svc.Send(context.Background(), state.SessionID, "Jane Doe", models.DeviceFull)

	// No keyword on either side: no prompt.
	state, _ = svc.Send(context.Background(), state.SessionID, "hello there", models.DeviceFull)
	if state.PromptShown {
		t.Fatal("prompt should not fire without a keyword")
	}

	// Keyword in the user input fires it.
	state, _ = svc.Send(context.Background(), state.SessionID, "do you do CYBERSECURITY work?", models.DeviceFull)
	if !state.PromptShown {
		t.Fatal("prompt should fire on a keyword match")
	}

	// It never resets on its own, keyword or not.
	state, _ = svc.Send(context.Background(), state.SessionID, "more consulting questions", models.DeviceFull)
	if !state.PromptShown {
		t.Fatal("prompt flag must stay set for the session")
	}
}

func TestAddSchedulingMessages(t *testing.T) {
	svc := newTestService(&fakeAI{}, &fakeLogs{})

	state, _ := svc.Open(context.Background(), "", models.DeviceMedium)
	state.PromptShown = true
	if err := svc.Store.Set(context.Background(), state); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	err := svc.AddSchedulingMessages(context.Background(), state.SessionID, "2026-03-02", "10:30", "jane@acme.com", models.DeviceMedium)
	if err != nil {
		t.Fatalf("add scheduling messages: %v", err)
	}

	got, _ := svc.Store.Get(context.Background(), state.SessionID)
	last := got.Messages[len(got.Messages)-1]
	if !strings.Contains(last.Content, "Monday, March 2, 2026") {
		t.Fatalf("expected weekday-qualified date, got %q", last.Content)
	}
	if !strings.Contains(last.Content, "10:30") || !strings.Contains(last.Content, "jane@acme.com") {
		t.Fatalf("expected time and email in confirmation, got %q", last.Content)
	}
	if got.PromptShown {
		t.Fatal("scheduling prompt should be cleared after confirmation")
	}
}

func TestServiceWithoutConstructorStillGuards(t *testing.T) {
	ai := &fakeAI{reply: "hello"}
	svc := &DefaultConversationService{
		Store:     NewMemorySessionStore(),
		AI:        ai,
		Logs:      &fakeLogs{},
		ClientKey: "corvex-test",
	}

	state, err := svc.Open(context.Background(), "", models.DeviceFull)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.Send(context.Background(), state.SessionID, "Jane Doe", models.DeviceFull); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.Send(context.Background(), state.SessionID, "hello", models.DeviceFull); err != nil {
		t.Fatalf("send: %v", err)
	}
	if ai.callCount() != 1 {
		t.Fatalf("expected one AI call, got %d", ai.callCount())
	}
}

func TestClearResetsSession(t *testing.T) {
	svc := newTestService(&fakeAI{}, &fakeLogs{})

	state, _ := svc.Open(context.Background(), "", models.DeviceFull)
	if err := svc.Clear(context.Background(), state.SessionID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := svc.History(context.Background(), state.SessionID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}
