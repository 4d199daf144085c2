// Package api содержит HTTP обработчики роботов бизнес-процессов.
//
// Структура:
//   - handler.go       — Handler с DI (клиент портала, журнал, publisher, logger)
//   - routes.go        — регистрация маршрутов
//   - middleware.go    — middleware (logging, recovery)
//   - request.go       — разбор входящего вызова (JSON, затем форма в PHP-нотации)
//   - validate.go      — проверка обязательных полей
//   - response.go      — JSON-ответы с ошибками
//   - dto.go           — ответы роботов
//   - robot_handler.go — обработчики /robots/*
//
// Невалидный вызов получает 400 без обращений к порталу. Остальные
// ответы: 200 (в том числе success=false при ошибке записи в сущность),
// 404 (задача или контакт не найдены), 500 (обязательный вызов портала
// завершился ошибкой).
package api
