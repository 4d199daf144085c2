// Package mq публикует события о завершённых вызовах роботов в RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — exchange robots.events и очереди
//   - publisher.go  — публикация invocation.* событий
//   - consumer.go   — чтение событий (robots-cli events tail)
//
// Routing keys:
//   - invocation.succeeded — робот отработал успешно
//   - invocation.failed    — success=false, 4xx или 5xx
//
// События опциональны: без RABBITMQ_URL сервер их не публикует.
package mq
