package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"corvex/middleware"
	"corvex/models"
	"corvex/services/booking"
	"corvex/services/conversation"

	"github.com/gin-gonic/gin"
)

type stubAI struct{ reply string }

func (s *stubAI) Chat(ctx context.Context, req models.AIChatRequest) (string, error) {
	return s.reply, nil
}

type stubLogs struct{}

func (s *stubLogs) Log(ctx context.Context, entry models.ChatLogEntry) error { return nil }
func (s *stubLogs) History(ctx context.Context, sessionID string, limit int) ([]models.StoredMessage, error) {
	return nil, nil
}

type stubAvailability struct{ slots []models.DateSlot }

func (s *stubAvailability) Check(ctx context.Context, days int) ([]models.DateSlot, error) {
	return s.slots, nil
}

type stubAppointments struct{ calls int }

func (s *stubAppointments) Save(ctx context.Context, req models.AppointmentRequest) error {
	s.calls++
	return nil
}

func newTestRouter(conv conversation.ConversationService, book booking.BookingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.DeviceContextMiddleware())

	ch := NewChatHandler(conv)
	api := r.Group("/api/chat")
	api.POST("/open", ch.OpenHandler)
	api.POST("/message", ch.MessageHandler)
	api.GET("/history", ch.HistoryHandler)

	bh := NewBookingHandler(book, conv)
	bapi := r.Group("/api/booking")
	bapi.POST("/open", bh.OpenSchedulingHandler)
	bapi.POST("/select", bh.SelectHandler)
	bapi.POST("/confirm", bh.ConfirmHandler)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, device string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if device != "" {
		req.Header.Set("X-Device-Class", device)
		req.Header.Set("X-Device-Touch", "true")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBookingConfirmRoundTrip(t *testing.T) {
	convSvc := conversation.NewConversationService(
		conversation.NewMemorySessionStore(), &stubAI{reply: "We can help with consulting."}, &stubLogs{}, "corvex-test")

	slots := []models.DateSlot{
		{Date: "2026-03-02", Slots: []models.TimeSlot{{Time: "09:00"}, {Time: "10:30"}}},
	}
	appts := &stubAppointments{}
	bookSvc := booking.NewBookingService(
		booking.NewMemoryBookingStore(), &stubAvailability{slots: slots}, appts, nil, 14)

	r := newTestRouter(convSvc, bookSvc)

	// Open a chat session and collect the name.
	w := doJSON(t, r, http.MethodPost, "/api/chat/open", gin.H{}, "tablet")
	if w.Code != http.StatusOK {
		t.Fatalf("chat open: status %d: %s", w.Code, w.Body.String())
	}
	var opened struct {
		Session models.ChatSessionState `json:"session"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &opened); err != nil {
		t.Fatalf("decode open response: %v", err)
	}
	sid := opened.Session.SessionID

	w = doJSON(t, r, http.MethodPost, "/api/chat/message",
		gin.H{"sessionId": sid, "message": "Jane Doe"}, "tablet")
	if w.Code != http.StatusOK {
		t.Fatalf("chat message: status %d: %s", w.Code, w.Body.String())
	}

	// Walk the booking flow on the same session.
	w = doJSON(t, r, http.MethodPost, "/api/booking/open", gin.H{"sessionId": sid}, "tablet")
	if w.Code != http.StatusOK {
		t.Fatalf("booking open: status %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/api/booking/select",
		gin.H{"sessionId": sid, "date": 0, "slot": 1}, "tablet")
	if w.Code != http.StatusOK {
		t.Fatalf("booking select: status %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/booking/confirm", gin.H{
		"sessionId": sid,
		"form":      gin.H{"name": "Jane Doe", "email": "jane@acme.com"},
	}, "tablet")
	if w.Code != http.StatusOK {
		t.Fatalf("booking confirm: status %d: %s", w.Code, w.Body.String())
	}
	var confirmed struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &confirmed); err != nil {
		t.Fatalf("decode confirm response: %v", err)
	}
	if !confirmed.Success {
		t.Fatalf("confirmation failed: %q", confirmed.Message)
	}
	if appts.calls != 1 {
		t.Fatalf("expected one save, got %d", appts.calls)
	}

	// The confirmation lands in the chat transcript with a
	// weekday-qualified date and the submitted email.
	w = doJSON(t, r, http.MethodGet, "/api/chat/history?sessionId="+sid, nil, "tablet")
	if w.Code != http.StatusOK {
		t.Fatalf("history: status %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "Monday, March 2, 2026") {
		t.Fatalf("transcript missing weekday-qualified date: %s", body)
	}
	if !strings.Contains(body, "jane@acme.com") || !strings.Contains(body, "10:30") {
		t.Fatalf("transcript missing booking details: %s", body)
	}
}

func TestConfirmWithoutSelectionIsRejected(t *testing.T) {
	convSvc := conversation.NewConversationService(
		conversation.NewMemorySessionStore(), &stubAI{reply: "ok"}, &stubLogs{}, "corvex-test")
	appts := &stubAppointments{}
	bookSvc := booking.NewBookingService(
		booking.NewMemoryBookingStore(),
		&stubAvailability{slots: []models.DateSlot{{Date: "2026-03-02", Slots: []models.TimeSlot{{Time: "09:00"}}}}},
		appts, nil, 14)

	r := newTestRouter(convSvc, bookSvc)

	w := doJSON(t, r, http.MethodPost, "/api/booking/open", gin.H{"sessionId": "session_1_abc"}, "desktop")
	if w.Code != http.StatusOK {
		t.Fatalf("booking open: status %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/booking/confirm", gin.H{
		"sessionId": "session_1_abc",
		"form":      gin.H{"name": "Jane Doe", "email": "jane@acme.com"},
	}, "desktop")
	if w.Code != http.StatusOK {
		t.Fatalf("booking confirm: status %d", w.Code)
	}

	var confirmed struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &confirmed); err != nil {
		t.Fatalf("decode confirm response: %v", err)
	}
	if confirmed.Success {
		t.Fatal("confirmation without a selection must not succeed")
	}
	if confirmed.Message == "" {
		t.Fatal("expected a validation message")
	}
	if appts.calls != 0 {
		t.Fatalf("expected no saves, got %d", appts.calls)
	}
}

func TestUnknownDeviceHeaderDefaultsToFull(t *testing.T) {
	convSvc := conversation.NewConversationService(
		conversation.NewMemorySessionStore(), &stubAI{reply: "ok"}, &stubLogs{}, "corvex-test")

	perDay := 10
	day := models.DateSlot{Date: "2026-03-02"}
	for i := 0; i < perDay; i++ {
		day.Slots = append(day.Slots, models.TimeSlot{Time: fmt.Sprintf("%02d:00", 8+i)})
	}
	bookSvc := booking.NewBookingService(
		booking.NewMemoryBookingStore(), &stubAvailability{slots: []models.DateSlot{day}}, &stubAppointments{}, nil, 14)

	r := newTestRouter(convSvc, bookSvc)

	w := doJSON(t, r, http.MethodPost, "/api/booking/open", gin.H{"sessionId": "session_1_abc"}, "smartwatch")
	if w.Code != http.StatusOK {
		t.Fatalf("booking open: status %d", w.Code)
	}
	var resp struct {
		State models.BookingState `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.State.Slots) != 1 || len(resp.State.Slots[0].Slots) != perDay {
		t.Fatalf("unknown device should get the unbounded full profile, got %+v", resp.State.Slots)
	}
}
