package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nsqio/go-nsq"
	"github.com/sirupsen/logrus"

	"ridedispatch/internal/domain"
)

// Publisher is the subset of *nsq.Producer used by NSQNotifier.
type Publisher interface {
	Publish(topic string, body []byte) error
}

var _ Publisher = (*nsq.Producer)(nil)

// NewNSQProducer connects to nsqd and verifies it is reachable.
func NewNSQProducer(address string) (*nsq.Producer, error) {
	config := nsq.NewConfig()
	producer, err := nsq.NewProducer(address, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create NSQ producer: %w", err)
	}

	if err := producer.Ping(); err != nil {
		producer.Stop()
		return nil, fmt.Errorf("failed to ping NSQ daemon: %w", err)
	}
	return producer, nil
}

// NSQNotifier publishes each event as JSON on the topic named by its type.
type NSQNotifier struct {
	publisher Publisher
	logger    logrus.FieldLogger
}

// NewNSQNotifier creates a new NSQNotifier.
func NewNSQNotifier(publisher Publisher, logger logrus.FieldLogger) *NSQNotifier {
	return &NSQNotifier{publisher: publisher, logger: logger}
}

// Publish sends the event to nsqd.
func (n *NSQNotifier) Publish(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.publisher.Publish(string(event.Type), body); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"topic":   event.Type,
		"ride_id": event.RideID,
	}).Debug("published ride event")
	return nil
}

// LogNotifier writes events to the log instead of a broker.
type LogNotifier struct {
	logger logrus.FieldLogger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Publish logs the event.
func (n *LogNotifier) Publish(ctx context.Context, event domain.Event) error {
	n.logger.WithFields(logrus.Fields{
		"event":       event.Type,
		"ride_id":     event.RideID,
		"customer_id": event.CustomerID,
		"status":      event.Status,
		"driver_id":   event.DriverID,
		"action":      event.Action,
	}).Info("[NOTIFICATION]")
	return nil
}
