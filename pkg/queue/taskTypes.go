package queue

import (
	"context"
)

type TaskType string

const (
	TaskTypeExpireBooking    TaskType = "expire_booking"
	TaskTypeSendNotification TaskType = "send_notification"
)

type Queue interface {
	Publish(ctx context.Context, task *Task) error
	Subscribe(ctx context.Context, handler func(*Task) error) error
	Close() error
}
