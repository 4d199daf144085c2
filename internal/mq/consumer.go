package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/b24robots/internal/domain"
)

// Handler обрабатывает итог вызова из события.
type Handler func(ctx context.Context, rec *domain.InvocationRecord) error

// Consumer читает события вызовов из очереди.
type Consumer struct {
	conn    *Connection
	queue   Queue
	handler Handler
	logger  *slog.Logger
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, queue Queue, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{conn: conn, queue: queue, handler: handler, logger: logger}
}

// Run читает сообщения до отмены контекста.
// После разрыва соединения ждёт переподключения и продолжает.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.consume()
		if err != nil {
			c.logger.Warn("consume failed, waiting for reconnect", "queue", c.queue, "error", err)
		} else {
			c.drain(ctx, deliveries)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.Reconnected():
		}
	}
}

func (c *Consumer) consume() (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery
	err := c.conn.WithChannel(func(ch *amqp.Channel) error {
		if err := ch.Qos(10, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
		d, err := ch.Consume(string(c.queue), "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", c.queue, err)
		}
		deliveries = d
		return nil
	})
	return deliveries, err
}

// drain обрабатывает сообщения, пока канал доставки открыт.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	rec, err := DecodeInvocation(d.Body)
	if err != nil {
		c.logger.Error("invalid message", "queue", c.queue, "error", err)
		d.Nack(false, false)
		return
	}

	if err := c.handler(ctx, rec); err != nil {
		c.logger.Error("handler failed", "queue", c.queue, "invocation_id", rec.ID, "error", err)
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

// DecodeInvocation разбирает тело сообщения invocation.completed.
func DecodeInvocation(body []byte) (*domain.InvocationRecord, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	if msg.Type != MessageTypeInvocationCompleted {
		return nil, fmt.Errorf("unexpected message type %q", msg.Type)
	}

	var rec domain.InvocationRecord
	if err := json.Unmarshal(msg.Payload, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &rec, nil
}
