package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"corvex/models"
)

// HTTPSchedulingBackend talks to the availability and appointments
// endpoints of the scheduling backend. Per-call deadlines come from the
// caller's context; the embedded client timeout is only a backstop.
type HTTPSchedulingBackend struct {
	BaseURL   string
	ClientKey string
	Client    *http.Client
}

func NewHTTPSchedulingBackend(baseURL, clientKey string) *HTTPSchedulingBackend {
	return &HTTPSchedulingBackend{
		BaseURL:   baseURL,
		ClientKey: clientKey,
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Check fetches open slots for the next `days` days.
func (b *HTTPSchedulingBackend) Check(ctx context.Context, days int) ([]models.DateSlot, error) {
	q := url.Values{}
	q.Set("client", b.ClientKey)
	q.Set("days", strconv.Itoa(days))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/availability/check?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create availability request: %w", err)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("availability request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("availability service returned status %d", resp.StatusCode)
	}

	var out models.AvailabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode availability response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("availability service error: %s", out.Error)
	}
	return out.Data.AvailableSlots, nil
}

// Save persists one appointment.
func (b *HTTPSchedulingBackend) Save(ctx context.Context, reqBody models.AppointmentRequest) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal appointment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/appointments", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create appointment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("appointment request failed: %w", err)
	}
	defer resp.Body.Close()

	var out models.APIResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode appointment response: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("appointment service error: %s", out.Error)
	}
	return nil
}
