// Package producer batches content events for newly created posts and
// publishes them to Kafka.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spacesedan/myriadflow/internal/clients"
	"github.com/spacesedan/myriadflow/internal/models"
	"github.com/spacesedan/myriadflow/internal/utils"
)

const SHUTDOWN_FLUSH_TIMEOUT = 10 * time.Second

type BatchSender interface {
	SendBatch(ctx context.Context, msgs []clients.KafkaMessage) error
}

type Publisher struct {
	sender   BatchSender
	buffer   *utils.BatchBuffer[clients.KafkaMessage]
	interval time.Duration
	sendLock sync.Mutex
}

func NewPublisher(sender BatchSender, batchSize int, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = utils.BATCH_TIMEOUT
	}
	return &Publisher{
		sender:   sender,
		buffer:   utils.NewBatchBuffer[clients.KafkaMessage](batchSize),
		interval: interval,
	}
}

// Publish queues the content event for post. A full buffer is flushed
// before Publish returns.
func (p *Publisher) Publish(ctx context.Context, post models.Post) error {
	value, err := json.Marshal(utils.PostToRawContent(post))
	if err != nil {
		return fmt.Errorf("marshal content event for post %s: %w", post.ID, err)
	}
	full := p.buffer.Add(clients.KafkaMessage{Key: []byte(post.ID), Value: value})
	if full {
		return p.Flush(ctx)
	}
	return nil
}

// Flush sends everything buffered as one batch. A failed batch is dropped.
func (p *Publisher) Flush(ctx context.Context) error {
	p.sendLock.Lock()
	defer p.sendLock.Unlock()

	batch := p.buffer.GetAndClear()
	if len(batch) == 0 {
		return nil
	}
	if err := p.sender.SendBatch(ctx, batch); err != nil {
		slog.Error("[Publisher] Failed to publish content batch",
			slog.Int("batch_size", len(batch)),
			slog.String("error", err.Error()))
		return fmt.Errorf("publish %d content events: %w", len(batch), err)
	}
	slog.Debug("[Publisher] Published content batch", slog.Int("batch_size", len(batch)))
	return nil
}

// Run flushes on every interval until ctx is cancelled, then flushes once
// more.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if p.buffer.HasData() {
				_ = p.Flush(ctx)
			}
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_FLUSH_TIMEOUT)
			_ = p.Flush(flushCtx)
			cancel()
			slog.Info("[Publisher] Stopped")
			return
		}
	}
}
