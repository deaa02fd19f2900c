package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/pkg/queue"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Notification is a fire-and-forget message to one user.
type Notification struct {
	Template  string            `json:"template"`
	Recipient uuid.UUID         `json:"recipient"`
	Data      map[string]string `json:"data"`
}

// Notifier hands notifications to a transport. Its errors never fail the
// operation that produced the notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ExpiryScheduler arranges for Expire to be called at a later time.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, bookingID uuid.UUID, at time.Time) error
}

func notificationTask(n Notification) *queue.Task {
	data := make(map[string]interface{}, len(n.Data))
	for k, v := range n.Data {
		data[k] = v
	}

	return &queue.Task{
		ID:   fmt.Sprintf("notify_%s_%s", n.Template, uuid.NewString()),
		Type: queue.TaskTypeSendNotification,
		Data: map[string]interface{}{
			"template":  n.Template,
			"recipient": n.Recipient.String(),
			"data":      data,
		},
		MaxRetries: 3,
	}
}

func expiryTask(bookingID uuid.UUID, at time.Time) *queue.Task {
	return &queue.Task{
		ID:   fmt.Sprintf("expire_booking_%s", bookingID),
		Type: queue.TaskTypeExpireBooking,
		Data: map[string]interface{}{
			"booking_id": bookingID.String(),
		},
		ExecuteAt:  at,
		MaxRetries: 3,
	}
}

// QueueAdapter publishes notifications and delayed expiry tasks to the Redis
// task queue.
type QueueAdapter struct {
	queue queue.Queue
}

func NewQueueAdapter(q queue.Queue) *QueueAdapter {
	return &QueueAdapter{queue: q}
}

func (a *QueueAdapter) Notify(ctx context.Context, n Notification) error {
	if a.queue == nil {
		return nil
	}
	return a.queue.Publish(ctx, notificationTask(n))
}

func (a *QueueAdapter) ScheduleExpiry(ctx context.Context, bookingID uuid.UUID, at time.Time) error {
	if a.queue == nil {
		return nil
	}
	return a.queue.Publish(ctx, expiryTask(bookingID, at))
}

// AMQPPublisher is the part of pkg/rabbitmq the adapter uses.
type AMQPPublisher interface {
	Publish(ctx context.Context, message interface{}) error
	PublishWithDelay(ctx context.Context, message interface{}, delay time.Duration) error
}

// RabbitAdapter sends the same task documents over RabbitMQ.
type RabbitAdapter struct {
	publisher AMQPPublisher
	now       Clock
}

func NewRabbitAdapter(p AMQPPublisher) *RabbitAdapter {
	return &RabbitAdapter{publisher: p, now: systemClock}
}

func (a *RabbitAdapter) Notify(ctx context.Context, n Notification) error {
	task := notificationTask(n)
	task.CreatedAt = a.now()
	return a.publisher.Publish(ctx, task)
}

func (a *RabbitAdapter) ScheduleExpiry(ctx context.Context, bookingID uuid.UUID, at time.Time) error {
	task := expiryTask(bookingID, at)
	task.CreatedAt = a.now()

	delay := at.Sub(task.CreatedAt)
	if delay <= 0 {
		return a.publisher.Publish(ctx, task)
	}
	return a.publisher.PublishWithDelay(ctx, task, delay)
}

// LogNotifier only writes notifications to the log. The periodic sweep still
// expires overdue bookings when it is used.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	logrus.WithFields(logrus.Fields{
		"template":  n.Template,
		"recipient": n.Recipient,
	}).Info(queue.RenderNotification(n.Template, n.Recipient.String(), n.Data))
	return nil
}

func (LogNotifier) ScheduleExpiry(ctx context.Context, bookingID uuid.UUID, at time.Time) error {
	logrus.WithFields(logrus.Fields{"booking_id": bookingID, "at": at}).Debug("Expiry left to the sweep")
	return nil
}
