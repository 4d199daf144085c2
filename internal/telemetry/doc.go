// Package telemetry обеспечивает наблюдаемость роботов.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики вызовов роботов и REST портала
//
// Все сервисы используют единый формат логирования
// и экспортируют метрики на /metrics endpoint.
package telemetry
