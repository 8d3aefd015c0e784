package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"corvex/models"

	"github.com/hibiken/asynq"
)

const TypeAppointmentReminder = "appointment:reminder"

// Reminders fire this long before the appointment start.
const reminderLead = 24 * time.Hour

// NewReminderTask builds the queued task for one appointment reminder.
func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeAppointmentReminder, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt)}

	return task, opts, nil
}

// AsynqReminderScheduler enqueues appointment reminders on the shared
// Redis-backed queue.
type AsynqReminderScheduler struct {
	Client *asynq.Client
}

func NewAsynqReminderScheduler(client *asynq.Client) *AsynqReminderScheduler {
	return &AsynqReminderScheduler{Client: client}
}

// Schedule queues a reminder a day ahead of the appointment. Appointments
// closer than the lead time get reminded a minute from now instead.
func (s *AsynqReminderScheduler) Schedule(ctx context.Context, p models.ReminderPayload) error {
	start, err := time.Parse("2006-01-02 15:04", p.Date+" "+p.Time)
	if err != nil {
		return fmt.Errorf("parse appointment start: %w", err)
	}

	fireAt := start.Add(-reminderLead)
	if fireAt.Before(time.Now()) {
		fireAt = time.Now().Add(time.Minute)
	}

	task, opts, err := NewReminderTask(p, fireAt)
	if err != nil {
		return err
	}
	if _, err := s.Client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue reminder: %w", err)
	}
	return nil
}
