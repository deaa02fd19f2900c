package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BookingExpirer is the part of the booking service the consumer needs.
type BookingExpirer interface {
	Expire(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error)
}

type TelegramBot interface {
	SendMessage(chatID, text string) error
}

// TaskHandler executes tasks consumed from either notification transport.
type TaskHandler struct {
	bookings    BookingExpirer
	telegramBot TelegramBot
	chatID      string
	timeout     time.Duration
}

// NewTaskHandler accepts a nil bot; notifications are then only logged.
func NewTaskHandler(bookings BookingExpirer, telegramBot TelegramBot, chatID string) *TaskHandler {
	return &TaskHandler{
		bookings:    bookings,
		telegramBot: telegramBot,
		chatID:      chatID,
		timeout:     10 * time.Second,
	}
}

func (h *TaskHandler) HandleTask(task *Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	switch task.Type {
	case TaskTypeExpireBooking:
		return h.handleExpireBooking(ctx, task)
	case TaskTypeSendNotification:
		return h.handleSendNotification(task)
	default:
		return entity.Validation("unknown task type: %s", task.Type)
	}
}

// A booking that was paid, approved or cancelled before the task fired is no
// longer expirable; that outcome is success, not a failure to retry.
func (h *TaskHandler) handleExpireBooking(ctx context.Context, task *Task) error {
	bookingID, err := uuid.Parse(task.GetString("booking_id"))
	if err != nil {
		return entity.Validation("invalid booking_id in task %s", task.ID)
	}

	log := logrus.WithFields(logrus.Fields{"task_id": task.ID, "booking_id": bookingID})

	_, err = h.bookings.Expire(ctx, bookingID)
	switch {
	case err == nil:
		log.Info("Booking expired")
		return nil
	case errors.Is(err, entity.ErrConflict), errors.Is(err, entity.ErrNotFound):
		log.WithError(err).Debug("Booking no longer expirable")
		return nil
	default:
		return fmt.Errorf("failed to expire booking %s: %w", bookingID, err)
	}
}

func (h *TaskHandler) handleSendNotification(task *Task) error {
	template := task.GetString("template")
	if template == "" {
		return entity.Validation("notification task %s has no template", task.ID)
	}

	text := RenderNotification(template, task.GetString("recipient"), task.GetStringMap("data"))

	if h.telegramBot == nil || h.chatID == "" {
		logrus.WithFields(logrus.Fields{"template": template, "recipient": task.GetString("recipient")}).Info(text)
		return nil
	}

	if err := h.telegramBot.SendMessage(h.chatID, text); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

var notificationTitles = map[string]string{
	"booking_created":   "New booking request",
	"booking_approved":  "Booking approved",
	"booking_rejected":  "Booking rejected",
	"booking_cancelled": "Booking cancelled",
	"booking_completed": "Trip completed",
	"booking_expired":   "Booking expired",
	"trip_started":      "Trip started",
	"contract_signed":   "Contract signed",
}

// RenderNotification formats a notification as plain text: a title line, the
// recipient, then the data fields in key order.
func RenderNotification(template, recipient string, data map[string]string) string {
	title, ok := notificationTitles[template]
	if !ok {
		title = template
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\nTo: ")
	b.WriteString(recipient)

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, data[k])
	}
	return b.String()
}
