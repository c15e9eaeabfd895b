package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultTopic = "cart-updated"

	headerOrigin    = "origin"
	headerEventType = "event_type"
	eventType       = "cart_updated"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type event struct {
	UserID     string    `json:"user_id"`
	Origin     string    `json:"origin"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Relay extends a local broadcaster across processes. Local broadcasts are
// published to Kafka keyed by user; events from other processes for the
// same user are re-broadcast locally only.
type Relay struct {
	local   Broadcaster
	writer  MessageWriter
	reader  MessageReader
	userID  string
	origin  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewRelay(local Broadcaster, writer MessageWriter, reader MessageReader, userID string, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		local:   local,
		writer:  writer,
		reader:  reader,
		userID:  userID,
		origin:  uuid.NewString(),
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// NewKafkaRelay builds a relay over kafka-go. An empty groupID gives the
// process its own consumer group so it sees every event.
func NewKafkaRelay(local Broadcaster, brokers []string, topic, groupID, userID string, logger *zap.Logger) *Relay {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("failed to publish cart event", zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}

	relay := NewRelay(local, w, nil, userID, logger)
	if groupID == "" {
		groupID = "cartwatch-" + relay.origin
	}
	relay.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MaxBytes:    1e6,
	})
	return relay
}

// Broadcast signals local subscribers and publishes the change.
func (r *Relay) Broadcast() {
	r.local.Broadcast()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.publish(ctx); err != nil {
		r.logger.Warn("failed to relay cart event", zap.Error(err))
	}
}

func (r *Relay) publish(ctx context.Context) error {
	value, err := json.Marshal(event{UserID: r.userID, Origin: r.origin, OccurredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(r.userID),
		Value: value,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(eventType)},
			{Key: headerOrigin, Value: []byte(r.origin)},
		},
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Run consumes remote events until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	if r.reader == nil {
		<-ctx.Done()
		return nil
	}
	for {
		m, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("read cart event: %w", err)
			}
			r.logger.Warn("failed to read cart event", zap.Error(err))
			continue
		}
		if r.accept(m) {
			r.local.Broadcast()
		}
	}
}

func (r *Relay) accept(m kafka.Message) bool {
	for _, h := range m.Headers {
		if h.Key == headerOrigin && string(h.Value) == r.origin {
			return false
		}
	}
	if r.userID != "" && string(m.Key) != r.userID {
		return false
	}
	return true
}

func (r *Relay) Close() error {
	var errs []error
	if r.writer != nil {
		errs = append(errs, r.writer.Close())
	}
	if r.reader != nil {
		errs = append(errs, r.reader.Close())
	}
	return errors.Join(errs...)
}
