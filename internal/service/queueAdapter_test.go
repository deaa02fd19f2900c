package service

import (
	"context"
	"testing"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/pkg/queue"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	tasks []*queue.Task
}

func (q *fakeQueue) Publish(ctx context.Context, task *queue.Task) error {
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *fakeQueue) Subscribe(ctx context.Context, handler func(*queue.Task) error) error {
	return nil
}

func (q *fakeQueue) Close() error { return nil }

type fakeAMQP struct {
	published []interface{}
	delays    []time.Duration
}

func (p *fakeAMQP) Publish(ctx context.Context, message interface{}) error {
	p.published = append(p.published, message)
	p.delays = append(p.delays, 0)
	return nil
}

func (p *fakeAMQP) PublishWithDelay(ctx context.Context, message interface{}, delay time.Duration) error {
	p.published = append(p.published, message)
	p.delays = append(p.delays, delay)
	return nil
}

func TestQueueAdapterTasks(t *testing.T) {
	q := &fakeQueue{}
	a := NewQueueAdapter(q)
	ctx := context.Background()
	recipient, bookingID := uuid.New(), uuid.New()
	at := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, a.Notify(ctx, Notification{
		Template:  "booking_approved",
		Recipient: recipient,
		Data:      map[string]string{"booking_id": bookingID.String()},
	}))
	require.NoError(t, a.ScheduleExpiry(ctx, bookingID, at))
	require.Len(t, q.tasks, 2)

	note := q.tasks[0]
	assert.Equal(t, queue.TaskTypeSendNotification, note.Type)
	assert.Equal(t, "booking_approved", note.GetString("template"))
	assert.Equal(t, recipient.String(), note.GetString("recipient"))
	assert.Equal(t, map[string]string{"booking_id": bookingID.String()}, note.GetStringMap("data"))

	expiry := q.tasks[1]
	assert.Equal(t, queue.TaskTypeExpireBooking, expiry.Type)
	assert.Equal(t, bookingID.String(), expiry.GetString("booking_id"))
	assert.Equal(t, at, expiry.ExecuteAt)
}

func TestQueueAdapterWithoutQueue(t *testing.T) {
	a := NewQueueAdapter(nil)
	assert.NoError(t, a.Notify(context.Background(), Notification{Template: "trip_started"}))
	assert.NoError(t, a.ScheduleExpiry(context.Background(), uuid.New(), time.Now()))
}

func TestRabbitAdapterDelaysExpiry(t *testing.T) {
	p := &fakeAMQP{}
	a := NewRabbitAdapter(p)
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, a.ScheduleExpiry(ctx, uuid.New(), now.Add(24*time.Hour)))
	require.NoError(t, a.ScheduleExpiry(ctx, uuid.New(), now.Add(-time.Minute)))
	require.NoError(t, a.Notify(ctx, Notification{Template: "booking_expired", Recipient: uuid.New()}))

	assert.Equal(t, []time.Duration{24 * time.Hour, 0, 0}, p.delays)

	task, ok := p.published[0].(*queue.Task)
	require.True(t, ok)
	assert.Equal(t, queue.TaskTypeExpireBooking, task.Type)
	assert.Equal(t, now, task.CreatedAt)
}
