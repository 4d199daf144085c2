// Package journal хранит итоги вызовов роботов в PostgreSQL.
//
// Журнал опционален: без DB_URL сервер работает без него. Старые
// записи удаляет Pruner по cron-расписанию (JOURNAL_PRUNE_CRON).
package journal
