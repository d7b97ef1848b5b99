package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const metadataEventType = "event_type"

// BusConfig configures the message bus
type BusConfig struct {
	// KafkaBrokers enables the Kafka publisher for outbound topics
	KafkaBrokers []string
	MaxRetries   int
}

// Bus routes events in process over a Go channel pub/sub. Topics consumed by
// this service always stay in process; every other topic goes to Kafka when
// brokers are configured.
type Bus struct {
	logger *slog.Logger

	local    *gochannel.GoChannel
	outbound message.Publisher
	router   *message.Router

	consumed map[string]bool
}

func NewBus(config BusConfig, logger *slog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	local := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, wmLogger)

	var outbound message.Publisher = local
	if len(config.KafkaBrokers) > 0 {
		kafkaPublisher, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   config.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("create kafka publisher: %w", err)
		}
		outbound = kafkaPublisher
	}

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 10 * time.Second,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create message router: %w", err)
	}

	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	// Messages still failing after retries are parked instead of redelivered forever
	poisonQueue, err := middleware.PoisonQueue(outbound, TopicPoison)
	if err != nil {
		return nil, fmt.Errorf("create poison queue: %w", err)
	}

	router.AddMiddleware(
		middleware.Recoverer,
		poisonQueue,
		middleware.Retry{
			MaxRetries:      maxRetries,
			InitialInterval: 100 * time.Millisecond,
			Logger:          wmLogger,
		}.Middleware,
	)

	return &Bus{
		logger:   logger,
		local:    local,
		outbound: outbound,
		router:   router,
		consumed: make(map[string]bool),
	}, nil
}

// Publish sends the event to the in-process or outbound publisher by topic
func (b *Bus) Publish(ctx context.Context, topic string, event *Event) error {
	msg, err := toMessage(ctx, event)
	if err != nil {
		return err
	}

	publisher := b.outbound
	if b.consumed[topic] {
		publisher = b.local
	}

	if err := publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, topic, err)
	}

	return nil
}

// AddHandler consumes topic in process. Must be called before Run.
func (b *Bus) AddHandler(name, topic string, handle func(ctx context.Context, event *Event) error) {
	b.consumed[topic] = true

	b.router.AddNoPublisherHandler(name, topic, b.local, func(msg *message.Message) error {
		var event Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			// Undecodable messages are dropped rather than retried
			b.logger.Error("Dropping malformed event", "handler", name, "message_uuid", msg.UUID, "error", err)
			return nil
		}
		return handle(msg.Context(), &event)
	})
}

// Run blocks until ctx is cancelled or the router is closed
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once the router has started its handlers
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

func (b *Bus) Close() error {
	var errs []error

	if err := b.router.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close router: %w", err))
	}
	if b.outbound != message.Publisher(b.local) {
		if err := b.outbound.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close outbound publisher: %w", err))
		}
	}
	if err := b.local.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close local pubsub: %w", err))
	}

	return errors.Join(errs...)
}

func toMessage(ctx context.Context, event *Event) (*message.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set(metadataEventType, event.Type)
	// Consumers run after the originating request has finished
	msg.SetContext(context.WithoutCancel(ctx))

	return msg, nil
}
