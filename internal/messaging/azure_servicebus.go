package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/ecoguard/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event types published by the service
const (
	EventAlertCreated  = "alert.created"
	EventCommandIssued = "command.issued"
	EventDeviceOffline = "device.offline"
	EventDeviceOnline  = "device.online"
)

// Event is the envelope written to the queue
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	DeviceKey  string      `json:"deviceKey,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// NewEvent stamps a fresh envelope
func NewEvent(eventType, deviceKey string, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		DeviceKey:  deviceKey,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// ServiceBusClient is an interface for Azure Service Bus operations
type ServiceBusClient interface {
	SendMessage(ctx context.Context, body interface{}, sessionID string) error
	Close() error
}

// serviceBusClient implements the ServiceBusClient interface
type serviceBusClient struct {
	client     *azservicebus.Client
	sender     *azservicebus.Sender
	queueName  string
	clientType string
}

// mockServiceBusClient logs instead of sending, for local development
type mockServiceBusClient struct {
	clientType string
	log        *logrus.Logger
}

// NewServiceBusClient creates a new Azure Service Bus client. Without a connection
// string the client only logs what it would have sent.
func NewServiceBusClient(cfg config.ServiceBusConfig, clientType string, log *logrus.Logger) (ServiceBusClient, error) {
	if log == nil {
		log = logrus.New()
	}
	if cfg.ConnectionString == "" {
		return &mockServiceBusClient{clientType: clientType, log: log}, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus sender: %w", err)
	}

	return &serviceBusClient{
		client:     client,
		sender:     sender,
		queueName:  cfg.QueueName,
		clientType: clientType,
	}, nil
}

// SendMessage sends a message to the Service Bus queue. Messages sharing a
// sessionID are delivered in order.
func (s *serviceBusClient) SendMessage(ctx context.Context, body interface{}, sessionID string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message body: %w", err)
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	msg := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"source": s.clientType,
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
		SessionID: &sessionID,
	}
	if ev, ok := body.(Event); ok {
		msg.ApplicationProperties["type"] = ev.Type
		msg.MessageID = &ev.ID
	}

	return s.sender.SendMessage(ctx, msg, nil)
}

// Close closes the Service Bus client
func (s *serviceBusClient) Close() error {
	if s.sender != nil {
		if err := s.sender.Close(context.Background()); err != nil {
			return err
		}
	}

	if s.client != nil {
		return s.client.Close(context.Background())
	}

	return nil
}

func (m *mockServiceBusClient) SendMessage(ctx context.Context, body interface{}, sessionID string) error {
	m.log.WithFields(logrus.Fields{
		"source":     m.clientType,
		"session_id": sessionID,
		"body":       fmt.Sprintf("%+v", body),
	}).Debug("[MOCK ServiceBus] message sent")
	return nil
}

func (m *mockServiceBusClient) Close() error {
	return nil
}
