// Package cli реализует инструмент командной строки robots.
//
// # Обзор
//
// CLI заменяет страницу установки приложения: регистрирует роботов
// на портале по манифесту robots.yaml, вызывает обработчики robots-api
// так, как это делает бизнес-процесс, и показывает журнал и события.
//
// # Ключевые компоненты
//
// ## Manifest
//
// Описание роботов (код, название, путь обработчика, входные и
// возвращаемые параметры). Из него формируются параметры
// bizproc.robot.add.
//
//	m, err := cli.LoadManifest("robots.yaml")
//	params := m.AddParams(m.Robots[0])
//
// ## Portal и Invoker
//
// Portal вызывает bizproc.robot.add/delete/list через internal/bitrix.
// Invoker отправляет тело вызова робота на robots-api.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
//
// ## Commands
//
// Cobra-команды:
//   - robot: list, install, uninstall
//   - invoke CODE --prop key=value
//   - journal list
//   - events tail
//
// Зависимости передаются через Env, функции которого вызываются
// после парсинга PersistentFlags.
package cli
