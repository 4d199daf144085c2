package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/b24robots/internal/domain"
)

// MessageType — тип сообщения.
type MessageType string

// MessageTypeInvocationCompleted — вызов робота завершён.
const MessageTypeInvocationCompleted MessageType = "invocation.completed"

// Message — конверт сообщения.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher публикует события в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// NewInvocationMessage формирует сообщение и routing key для итога вызова.
func NewInvocationMessage(rec *domain.InvocationRecord, now time.Time) (*Message, RoutingKey, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, "", fmt.Errorf("marshal payload: %w", err)
	}

	key := RoutingKeySucceeded
	if !rec.Success || rec.StatusCode >= 400 {
		key = RoutingKeyFailed
	}

	return &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeInvocationCompleted,
		Payload:   payload,
		Timestamp: now,
	}, key, nil
}

// PublishInvocationCompleted публикует итог вызова робота.
func (p *Publisher) PublishInvocationCompleted(ctx context.Context, rec *domain.InvocationRecord) error {
	msg, key, err := NewInvocationMessage(rec, time.Now())
	if err != nil {
		return err
	}
	return p.Publish(ctx, key, msg)
}

// Publish публикует сообщение в ExchangeEvents.
func (p *Publisher) Publish(ctx context.Context, key RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx,
			string(ExchangeEvents),
			string(key),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish %s: %w", key, err)
		}

		p.logger.Debug("published message", "routing_key", key, "message_id", msg.ID)
		return nil
	})
}
