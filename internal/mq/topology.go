package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

// ExchangeEvents — topic exchange событий роботов.
const ExchangeEvents Exchange = "robots.events"

// Очереди.
const (
	// QueueInvocations — все завершённые вызовы (для внешних потребителей).
	QueueInvocations Queue = "robots.invocations"

	// QueueFailures — только неуспешные вызовы.
	QueueFailures Queue = "robots.invocations.failed"
)

// Routing keys.
const (
	RoutingKeySucceeded RoutingKey = "invocation.succeeded"
	RoutingKeyFailed    RoutingKey = "invocation.failed"

	// RoutingKeyAll — шаблон для привязки ко всем событиям вызовов.
	RoutingKeyAll RoutingKey = "invocation.*"
)

// binding — привязка очереди к exchange.
type binding struct {
	queue Queue
	key   RoutingKey
}

var bindings = []binding{
	{QueueInvocations, RoutingKeyAll},
	{QueueFailures, RoutingKeyFailed},
}

// SetupTopology объявляет exchange, очереди и привязки.
func SetupTopology(conn *Connection) error {
	return conn.WithChannel(func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeEvents), // name
			amqp.ExchangeTopic,     // type
			true,                   // durable
			false,                  // auto-deleted
			false,                  // internal
			false,                  // no-wait
			nil,                    // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
		}

		for _, b := range bindings {
			if _, err := ch.QueueDeclare(string(b.queue), true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}
			if err := ch.QueueBind(string(b.queue), string(b.key), string(ExchangeEvents), false, nil); err != nil {
				return fmt.Errorf("bind queue %s: %w", b.queue, err)
			}
		}
		return nil
	})
}

// DeclareTailQueue создаёт временную эксклюзивную очередь, получающую
// события по шаблону key. Очередь удаляется вместе с соединением.
func DeclareTailQueue(conn *Connection, key RoutingKey) (Queue, error) {
	var name Queue
	err := conn.WithChannel(func(ch *amqp.Channel) error {
		q, err := ch.QueueDeclare("", false, true, true, false, nil)
		if err != nil {
			return fmt.Errorf("declare tail queue: %w", err)
		}
		if err := ch.QueueBind(q.Name, string(key), string(ExchangeEvents), false, nil); err != nil {
			return fmt.Errorf("bind tail queue: %w", err)
		}
		name = Queue(q.Name)
		return nil
	})
	return name, err
}
