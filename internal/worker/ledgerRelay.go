package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/database"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/kafka"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultBatchSize = 100

// LedgerRelay publishes ledger entries written by booking operations to the
// event stream. Entries are marked published in the same transaction that
// read them, so a failed commit means the batch is sent again: delivery is
// at least once and consumers dedupe by entry id.
type LedgerRelay struct {
	store     database.Store
	producer  kafka.Producer
	metrics   *metrics.Metrics
	topic     string
	batchSize int
	interval  time.Duration
}

func NewLedgerRelay(store database.Store, producer kafka.Producer, m *metrics.Metrics, topic string, batchSize int, interval time.Duration) *LedgerRelay {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &LedgerRelay{
		store:     store,
		producer:  producer,
		metrics:   m,
		topic:     topic,
		batchSize: batchSize,
		interval:  interval,
	}
}

func (r *LedgerRelay) Name() string { return "ledger_relay" }

func (r *LedgerRelay) Interval() time.Duration { return r.interval }

// Run relays batches until none are left.
func (r *LedgerRelay) Run(ctx context.Context) error {
	total := 0
	for {
		n, err := r.relayBatch(ctx)
		total += n
		if err != nil {
			return err
		}
		if n < r.batchSize {
			break
		}
	}

	if total > 0 {
		logrus.WithFields(logrus.Fields{"count": total, "topic": r.topic}).Info("Ledger entries published")
	}
	return nil
}

func (r *LedgerRelay) relayBatch(ctx context.Context) (int, error) {
	var published int

	err := r.store.WithinTx(ctx, func(tx database.Tx) error {
		entries, err := tx.Ledger().GetUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		messages := make([]kafka.Message, 0, len(entries))
		ids := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			messages = append(messages, kafka.Message{Key: e.BookingID.String(), Value: e})
			ids = append(ids, e.ID)
		}

		if err := r.producer.SendMessages(ctx, r.topic, messages...); err != nil {
			return err
		}
		if err := tx.Ledger().MarkPublished(ctx, ids, time.Now().UTC()); err != nil {
			return err
		}

		published = len(entries)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to relay ledger entries: %w", err)
	}

	r.metrics.Published(published)
	return published, nil
}
