package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	Exchange = "platform.events" // the name of the only exchange

	AttemptCompletedKey = "attempt.completed" // routing key for finalized quiz attempts
	LeadCreatedKey      = "lead.created"      // routing key for captured leads
)

// AttemptCompleted is published after a finalized attempt is durably stored.
type AttemptCompleted struct {
	AttemptID   uint      `json:"attempt_id"`
	UserID      uint      `json:"user_id"`
	QuizID      uint      `json:"quiz_id"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completed_at"`
}

// LeadCreated is published when the public lead form captures a new lead.
type LeadCreated struct {
	LeadID    uint      `json:"lead_id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Publisher pushes platform events to downstream consumers. Callers hold a
// nil *AMQPPublisher when eventing is disabled; all methods are nil-safe.
type Publisher interface {
	Publish(routingKey string, payload interface{}) error
	Close() error
}

type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPPublisher connects to RabbitMQ and declares the topic exchange.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{conn: conn, channel: ch}, nil
}

func (p *AMQPPublisher) Publish(routingKey string, payload interface{}) error {
	if p == nil {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.channel.PublishWithContext(ctx,
		Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		})
}

func (p *AMQPPublisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
