package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/seatledger/seatledger/internal/domain"
	"github.com/seatledger/seatledger/pkg/kafka"
)

// Notifier publishes booking lifecycle events. Delivery is best-effort:
// the booking flow never fails because a notification did not go out.
type Notifier interface {
	PublishBookingCreated(ctx context.Context, reservation *domain.Reservation, event *domain.Event) error
	PublishBookingConfirmed(ctx context.Context, reservation *domain.Reservation, event *domain.Event) error
	PublishBookingCancelled(ctx context.Context, reservation *domain.Reservation, event *domain.Event) error
	Close() error
}

// KafkaNotifier implements Notifier on a Kafka topic
type KafkaNotifier struct {
	producer    *kafka.Producer
	topic       string
	serviceName string
}

// KafkaNotifierConfig contains configuration for the notifier
type KafkaNotifierConfig struct {
	Brokers     []string
	Topic       string
	ClientID    string
	ServiceName string
}

// NewKafkaNotifier creates a new Kafka notifier
func NewKafkaNotifier(ctx context.Context, cfg *KafkaNotifierConfig) (*KafkaNotifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("notifier config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "booking-events"
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "seatledger"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "seatledger-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaNotifier{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
	}, nil
}

// PublishBookingCreated publishes a booking created event
func (n *KafkaNotifier) PublishBookingCreated(ctx context.Context, reservation *domain.Reservation, event *domain.Event) error {
	return n.publish(ctx, domain.BookingEventCreated, reservation, event)
}

// PublishBookingConfirmed publishes a booking confirmed event
func (n *KafkaNotifier) PublishBookingConfirmed(ctx context.Context, reservation *domain.Reservation, event *domain.Event) error {
	return n.publish(ctx, domain.BookingEventConfirmed, reservation, event)
}

// PublishBookingCancelled publishes a booking cancelled event
func (n *KafkaNotifier) PublishBookingCancelled(ctx context.Context, reservation *domain.Reservation, event *domain.Event) error {
	return n.publish(ctx, domain.BookingEventCancelled, reservation, event)
}

// Close closes the notifier
func (n *KafkaNotifier) Close() error {
	if n.producer != nil {
		n.producer.Close()
	}
	return nil
}

func (n *KafkaNotifier) publish(ctx context.Context, eventType domain.BookingEventType, reservation *domain.Reservation, event *domain.Event) error {
	payload := domain.StatusChangeNotification{
		EventID:       reservation.EventID,
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		Quantity:      reservation.Quantity,
		TotalAmount:   reservation.TotalAmount,
		Status:        reservation.Status,
	}
	if event != nil {
		payload.EventTitle = event.Title
		payload.EventDate = event.StartsAt
		payload.Venue = event.Venue
	}

	envelope := &domain.BookingEvent{
		EventID:   reservation.EventID,
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &kafka.Message{
		Topic: n.topic,
		Key:   []byte(envelope.Key()),
		Value: value,
		Headers: map[string]string{
			"event_type":   string(eventType),
			"source":       n.serviceName,
			"content_type": "application/json",
		},
		Timestamp: time.Now(),
	}

	if err := n.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

// NoOpNotifier is a no-op implementation of Notifier
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new no-op notifier
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

func (n *NoOpNotifier) PublishBookingCreated(ctx context.Context, reservation *domain.Reservation, event *domain.Event) error {
	return nil
}

func (n *NoOpNotifier) PublishBookingConfirmed(ctx context.Context, reservation *domain.Reservation, event *domain.Event) error {
	return nil
}

func (n *NoOpNotifier) PublishBookingCancelled(ctx context.Context, reservation *domain.Reservation, event *domain.Event) error {
	return nil
}

func (n *NoOpNotifier) Close() error {
	return nil
}

// Ensure implementations satisfy Notifier
var (
	_ Notifier = (*KafkaNotifier)(nil)
	_ Notifier = (*NoOpNotifier)(nil)
)
