package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/database"
	"github.com/ds124wfegd/WB_L3/carrent/internal/database/memory"
	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/kafka"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	topic    string
	messages []kafka.Message
	err      error
}

func (p *fakeProducer) SendMessages(ctx context.Context, topic string, messages ...kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.topic = topic
	p.messages = append(p.messages, messages...)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func seedLedger(t *testing.T, store database.Store, n int) uuid.UUID {
	t.Helper()

	bookingID := uuid.New()
	err := store.WithinTx(context.Background(), func(tx database.Tx) error {
		for i := 0; i < n; i++ {
			err := tx.Ledger().Append(context.Background(), &entity.LedgerEntry{
				ID:        uuid.New(),
				BookingID: bookingID,
				UserID:    uuid.New(),
				Direction: entity.LedgerCredit,
				Amount:    decimal.NewFromInt(int64(10 + i)),
				Reason:    entity.LedgerReasonRefund,
				CreatedAt: time.Now(),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return bookingID
}

func unpublished(t *testing.T, store database.Store) int {
	t.Helper()

	var n int
	err := store.WithinTx(context.Background(), func(tx database.Tx) error {
		entries, err := tx.Ledger().GetUnpublished(context.Background(), 0)
		n = len(entries)
		return err
	})
	require.NoError(t, err)
	return n
}

func TestLedgerRelayPublishesAllBatches(t *testing.T) {
	store := memory.NewStore()
	bookingID := seedLedger(t, store, 5)
	producer := &fakeProducer{}

	relay := NewLedgerRelay(store, producer, nil, "ledger-entries", 2, time.Second)
	require.NoError(t, relay.Run(context.Background()))

	assert.Equal(t, "ledger-entries", producer.topic)
	require.Len(t, producer.messages, 5)
	assert.Equal(t, bookingID.String(), producer.messages[0].Key)
	assert.Zero(t, unpublished(t, store))

	require.NoError(t, relay.Run(context.Background()))
	assert.Len(t, producer.messages, 5)
}

func TestLedgerRelayKeepsEntriesOnFailure(t *testing.T) {
	store := memory.NewStore()
	seedLedger(t, store, 3)
	producer := &fakeProducer{err: errors.New("kafka: leader not available")}

	relay := NewLedgerRelay(store, producer, nil, "ledger-entries", 10, time.Second)
	assert.Error(t, relay.Run(context.Background()))
	assert.Equal(t, 3, unpublished(t, store))

	producer.err = nil
	require.NoError(t, relay.Run(context.Background()))
	assert.Len(t, producer.messages, 3)
	assert.Zero(t, unpublished(t, store))
}

type fakeExpirer struct {
	expired int
	err     error
}

func (f *fakeExpirer) ExpireOverdue(ctx context.Context) (int, error) {
	return f.expired, f.err
}

func TestExpiryWorker(t *testing.T) {
	w := NewExpiryWorker(&fakeExpirer{expired: 3}, time.Minute)
	assert.Equal(t, time.Minute, w.Interval())
	assert.NoError(t, w.Run(context.Background()))

	w = NewExpiryWorker(&fakeExpirer{expired: 1, err: errors.New("connection reset")}, time.Minute)
	assert.Error(t, w.Run(context.Background()))
}
