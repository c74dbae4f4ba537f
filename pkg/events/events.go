package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/borderdesk/visatrack/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	// Tourist record events
	TouristCreated = "tourist.created"
	TouristExited  = "tourist.exited"
	VisaRenewed    = "visa.renewed"

	// Sweep events
	ReminderSent = "reminder.sent"
	VisaExpired  = "visa.expired"
	SweepDone    = "sweep.completed"
)

// Event payloads
type TouristCreatedEvent struct {
	TouristID      int64     `json:"tourist_id"`
	FullName       string    `json:"full_name"`
	Nationality    string    `json:"nationality"`
	PassportNumber string    `json:"passport_number"`
	VisaNumber     string    `json:"visa_number"`
	ExpirationDate time.Time `json:"expiration_date"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type TouristExitedEvent struct {
	TouristID int64     `json:"tourist_id"`
	ExitDate  time.Time `json:"exit_date"`
}

type VisaRenewedEvent struct {
	TouristID         int64     `json:"tourist_id"`
	RenewalDate       time.Time `json:"renewal_date"`
	NewExpirationDate time.Time `json:"new_expiration_date"`
}

type ReminderSentEvent struct {
	TouristID      int64     `json:"tourist_id"`
	Email          string    `json:"email"`
	ExpirationDate time.Time `json:"expiration_date"`
	DaysRemaining  int       `json:"days_remaining"`
	Manual         bool      `json:"manual"`
	SentAt         time.Time `json:"sent_at"`
}

type VisaExpiredEvent struct {
	TouristID      int64     `json:"tourist_id"`
	ExpirationDate time.Time `json:"expiration_date"`
}

type SweepDoneEvent struct {
	Scanned       int       `json:"scanned"`
	RemindersSent int       `json:"reminders_sent"`
	Expired       int       `json:"expired"`
	RanAt         time.Time `json:"ran_at"`
}
