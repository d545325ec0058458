package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/yigit/coursemarket/internal/config"
	"github.com/yigit/coursemarket/internal/pkg/logger"
)

// Publisher publishes JSON encoded events
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// HandlerFunc consumes the JSON payload of one message
type HandlerFunc func(ctx context.Context, payload []byte) error

// Bus is a watermill publisher, subscriber and router bundle
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	shared     bool
	router     *message.Router
	logger     watermill.LoggerAdapter
}

var _ Publisher = (*Bus)(nil)

// NewBus builds the transport selected by cfg.Events.Driver
func NewBus(cfg *config.Config) (*Bus, error) {
	wmLogger := NewLoggerAdapter(logger.Component("events"))

	switch cfg.Events.Driver {
	case config.EventsDriverKafka:
		return newKafkaBus(cfg, wmLogger)
	default:
		return newBus(newGoChannel(wmLogger), nil, wmLogger)
	}
}

// NewGoChannelBus returns an in-process bus
func NewGoChannelBus() *Bus {
	wmLogger := NewLoggerAdapter(logger.Component("events"))
	bus, err := newBus(newGoChannel(wmLogger), nil, wmLogger)
	if err != nil {
		// message.NewRouter only fails on an invalid config
		panic(err)
	}
	return bus
}

func newGoChannel(wmLogger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
}

func newKafkaBus(cfg *config.Config, wmLogger watermill.LoggerAdapter) (*Bus, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers(),
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               cfg.KafkaBrokers(),
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
		ConsumerGroup:         cfg.Events.ConsumerGroup,
	}, wmLogger)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}

	return newBus(publisher, subscriber, wmLogger)
}

// newBus uses pub for both directions when sub is nil
func newBus(pub message.Publisher, sub message.Subscriber, wmLogger watermill.LoggerAdapter) (*Bus, error) {
	shared := sub == nil
	if shared {
		s, ok := pub.(message.Subscriber)
		if !ok {
			return nil, fmt.Errorf("publisher %T cannot subscribe", pub)
		}
		sub = s
	}

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event router: %w", err)
	}

	return &Bus{
		publisher:  pub,
		subscriber: sub,
		shared:     shared,
		router:     router,
		logger:     wmLogger,
	}, nil
}

// Publish marshals payload to JSON and publishes it on topic
func (b *Bus) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", topic, err)
	}
	return nil
}

// Subscribe registers handler for topic. It must be called before Run.
// Handler failures are logged and the message is acked, so a poison
// event is never redelivered in a loop.
func (b *Bus) Subscribe(name, topic string, handler HandlerFunc) {
	b.router.AddNoPublisherHandler(name, topic, b.subscriber, func(msg *message.Message) error {
		if err := handler(msg.Context(), msg.Payload); err != nil {
			b.logger.Error("Event handler failed", err, watermill.LogFields{
				"handler":    name,
				"topic":      topic,
				"message_id": msg.UUID,
			})
		}
		return nil
	})
}

// Run starts the router and blocks until ctx is done or Close is called
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once every handler is subscribed
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

// Close stops the router and both transports
func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	if err := b.publisher.Close(); err != nil {
		return err
	}
	if b.shared {
		return nil
	}
	return b.subscriber.Close()
}
