package clients

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/myriadflow/config"
)

// KafkaMessage is one keyed record bound for a topic.
type KafkaMessage struct {
	Key   []byte
	Value []byte
}

// KafkaProducer is an idempotent, transactional producer. Each SendBatch call
// commits its messages atomically.
type KafkaProducer struct {
	producer *kafka.Producer
	topic    string
}

// producerConfig enables idempotent transactional delivery. Delivery reports
// are off since SendBatch learns the outcome from CommitTransaction.
func producerConfig(cfg config.KafkaConfig) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers":                     cfg.Broker,
		"security.protocol":                     "PLAINTEXT",
		"api.version.request":                   "true",
		"enable.idempotence":                    true,
		"acks":                                  "all",
		"max.in.flight.requests.per.connection": 1,
		"transactional.id":                      "myriadflow-producer-1",
		"go.delivery.reports":                   false,
	}
}

func NewKafkaProducer(ctx context.Context, cfg config.KafkaConfig) (*KafkaProducer, error) {
	slog.Info("[KafkaClient] Initializing Kafka Producer...",
		slog.String("broker", cfg.Broker))

	p, err := kafka.NewProducer(producerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	if err := p.InitTransactions(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("[KafkaClient] Failed to init transactions: %w", err)
	}

	slog.Info("[KafkaClient] Kafka Producer initialized successfully")
	return &KafkaProducer{producer: p, topic: cfg.RawContentTopic}, nil
}

func (kp *KafkaProducer) Topic() string { return kp.topic }

func (kp *KafkaProducer) SendBatch(ctx context.Context, msgs []KafkaMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := kp.producer.BeginTransaction(); err != nil {
		return fmt.Errorf("[KafkaClient] failed to begin transaction: %w", err)
	}

	for _, m := range msgs {
		msg := &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &kp.topic, Partition: kafka.PartitionAny},
			Key:            m.Key,
			Value:          m.Value,
		}

		var err error
		for i := 0; i < 3; i++ {
			if err = kp.producer.Produce(msg, nil); err == nil {
				break
			}
			slog.Warn("[KafkaClient] Failed to produce message, retrying...",
				slog.Int("attempt", i+1))
		}
		if err != nil {
			if abortErr := kp.producer.AbortTransaction(ctx); abortErr != nil {
				return fmt.Errorf("[KafkaClient] failed to abort transaction after produce error: %w", abortErr)
			}
			return fmt.Errorf("[KafkaClient] failed to produce message: %w", err)
		}
	}

	var commitErr error
	for i := 0; i < 3; i++ {
		if commitErr = kp.producer.CommitTransaction(ctx); commitErr == nil {
			break
		}
		slog.Warn("[KafkaClient] Failed to commit transaction, retrying...",
			slog.Int("attempt", i+1))
	}
	if commitErr != nil {
		return fmt.Errorf("[KafkaClient] failed to commit transaction after 3 retries: %w", commitErr)
	}

	slog.Info("[KafkaClient] Published batch transactionally",
		slog.String("topic", kp.topic),
		slog.Int("messages", len(msgs)))
	return nil
}

func (kp *KafkaProducer) Close() {
	slog.Info("[KafkaClient] Flushing Kafka producer before shutdown...")
	if remaining := kp.producer.Flush(5000); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	kp.producer.Close()
	slog.Info("[KafkaClient] Kafka producer shut down")
}
