package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/config"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
)

const (
	defaultMaxRetries = 3
	maxDLQBackoff     = 30 * time.Second
)

// ErrPoisonMessage marks a message that can never be processed. It is sent
// to the DLQ without being retried.
var ErrPoisonMessage = errors.New("poison message")

// OrderHandler applies one completed order.
type OrderHandler func(ctx context.Context, event models.OrderCompletedEvent) error

// MessageValidator checks a raw message before it is decoded.
type MessageValidator func(raw []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Stats() kafka.ReaderStats
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageBus consumes completed orders and publishes recommendation outcomes.
type MessageBus struct {
	ordersReader  messageReader
	outcomeWriter messageWriter
	dlqWriter     messageWriter
	topics        config.KafkaTopics
	validate      MessageValidator
	maxRetries    int
	baseDelay     time.Duration
	logger        *logrus.Logger
}

func NewMessageBus(cfg *config.Config, logger *logrus.Logger) (*MessageBus, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, errors.New("no Kafka brokers configured")
	}

	ordersReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topics.OrdersCompleted,
		GroupID:        cfg.Kafka.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})

	outcomeWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topics.RecommendationOutcomes,
		Balancer:     &kafka.Hash{}, // keyed by user id
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}

	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topics.OrdersCompletedDLQ,
		RequiredAcks: kafka.RequireOne,
	}

	bus := newMessageBus(ordersReader, outcomeWriter, dlqWriter, cfg.Kafka.Topics, logger)
	if cfg.Kafka.MaxRetries > 0 {
		bus.maxRetries = cfg.Kafka.MaxRetries
	}
	return bus, nil
}

func newMessageBus(reader messageReader, outcomeWriter, dlqWriter messageWriter, topics config.KafkaTopics, logger *logrus.Logger) *MessageBus {
	return &MessageBus{
		ordersReader:  reader,
		outcomeWriter: outcomeWriter,
		dlqWriter:     dlqWriter,
		topics:        topics,
		maxRetries:    defaultMaxRetries,
		baseDelay:     time.Second,
		logger:        logger,
	}
}

// SetValidator installs a check run on every raw order message. Messages it
// rejects go straight to the DLQ.
func (mb *MessageBus) SetValidator(validate MessageValidator) {
	mb.validate = validate
}

// RecordOutcome publishes a recommendation outcome keyed by user id.
func (mb *MessageBus) RecordOutcome(ctx context.Context, event models.RecommendationOutcomeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "recommendation_id", Value: []byte(event.RecommendationID.String())},
			{Key: "action", Value: []byte(event.Action)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := mb.outcomeWriter.WriteMessages(writeCtx, message); err != nil {
		return fmt.Errorf("failed to publish outcome: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"recommendation_id": event.RecommendationID,
		"action":            event.Action,
		"topic":             mb.topics.RecommendationOutcomes,
	}).Debug("Recommendation outcome published")

	return nil
}

// ConsumeOrders blocks until ctx is cancelled. Each message is committed once
// it has been handled or moved to the DLQ, so delivery is at least once.
func (mb *MessageBus) ConsumeOrders(ctx context.Context, handler OrderHandler) error {
	for {
		message, err := mb.ordersReader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mb.logger.WithError(err).Error("Failed to read message from Kafka")
			if !sleep(ctx, mb.baseDelay) {
				return ctx.Err()
			}
			continue
		}

		if err := mb.handleMessage(ctx, message, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mb.logger.WithError(err).WithFields(logrus.Fields{
				"partition": message.Partition,
				"offset":    message.Offset,
			}).Error("Failed to process order message")

			// Committing a later offset on this partition would skip the
			// message, so block until the DLQ accepts it.
			if dlqErr := mb.sendToDLQWithRetry(ctx, message, err); dlqErr != nil {
				return dlqErr
			}
		}

		if err := mb.ordersReader.CommitMessages(ctx, message); err != nil {
			mb.logger.WithError(err).WithField("offset", message.Offset).Warn("Failed to commit order message")
		}
	}
}

func (mb *MessageBus) handleMessage(ctx context.Context, message kafka.Message, handler OrderHandler) error {
	if mb.validate != nil {
		if err := mb.validate(message.Value); err != nil {
			return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
		}
	}

	var event models.OrderCompletedEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}

	return mb.processWithRetry(ctx, event, handler)
}

func (mb *MessageBus) processWithRetry(ctx context.Context, event models.OrderCompletedEvent, handler OrderHandler) error {
	var lastErr error

	for attempt := 0; attempt <= mb.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := mb.baseDelay * time.Duration(1<<uint(attempt-1))
			mb.logger.WithFields(logrus.Fields{
				"order_id": event.OrderID,
				"attempt":  attempt,
				"delay":    delay,
			}).Info("Retrying order processing")

			if !sleep(ctx, delay) {
				return ctx.Err()
			}
		}

		lastErr = handler(ctx, event)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrPoisonMessage) {
			return lastErr
		}

		mb.logger.WithError(lastErr).WithFields(logrus.Fields{
			"order_id": event.OrderID,
			"attempt":  attempt,
		}).Warn("Order processing failed")
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// sendToDLQWithRetry retries the DLQ write with capped exponential backoff.
// It returns only once the write succeeds or ctx is done.
func (mb *MessageBus) sendToDLQWithRetry(ctx context.Context, message kafka.Message, cause error) error {
	delay := mb.baseDelay
	for attempt := 1; ; attempt++ {
		err := mb.sendToDLQ(ctx, message, cause)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		mb.logger.WithError(err).WithFields(logrus.Fields{
			"partition": message.Partition,
			"offset":    message.Offset,
			"attempt":   attempt,
			"delay":     delay,
		}).Error("Failed to send message to DLQ, retrying")

		if !sleep(ctx, delay) {
			return ctx.Err()
		}
		delay = min(delay*2, maxDLQBackoff)
	}
}

func (mb *MessageBus) sendToDLQ(ctx context.Context, message kafka.Message, cause error) error {
	dlqMessage := map[string]interface{}{
		"original_message": json.RawMessage(validJSONOrString(message.Value)),
		"error":            cause.Error(),
		"dlq_timestamp":    time.Now().UTC(),
	}

	payload, err := json.Marshal(dlqMessage)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	if err := mb.dlqWriter.WriteMessages(ctx, kafka.Message{
		Key:   message.Key,
		Value: payload,
		Headers: []kafka.Header{
			{Key: "original_topic", Value: []byte(mb.topics.OrdersCompleted)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	}); err != nil {
		return fmt.Errorf("failed to write message to DLQ: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"offset": message.Offset,
		"error":  cause.Error(),
		"topic":  mb.topics.OrdersCompletedDLQ,
	}).Warn("Message sent to DLQ")

	return nil
}

func (mb *MessageBus) Close() error {
	var errs []error

	if err := mb.outcomeWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close outcome writer: %w", err))
	}
	if err := mb.ordersReader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close orders reader: %w", err))
	}
	if err := mb.dlqWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close DLQ writer: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing message bus: %v", errs)
	}
	return nil
}

// GetMetrics returns consumer statistics for monitoring.
func (mb *MessageBus) GetMetrics() map[string]interface{} {
	stats := mb.ordersReader.Stats()
	return map[string]interface{}{
		"consumer_lag":    stats.Lag,
		"consumer_offset": stats.Offset,
		"messages_read":   stats.Messages,
		"bytes_read":      stats.Bytes,
		"rebalances":      stats.Rebalances,
		"timeouts":        stats.Timeouts,
		"errors":          stats.Errors,
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func validJSONOrString(raw []byte) []byte {
	if json.Valid(raw) {
		return raw
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}
