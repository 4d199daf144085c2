package cli

import "log/slog"

// Env — зависимости команд. Функции вызываются лениво, после парсинга
// PersistentFlags, поэтому команды без портала не требуют токена.
type Env struct {
	Manifest func() (*Manifest, error)
	Portal   func() (*Portal, error)
	Auth     func() (InvokeAuth, error)
	Invoker  func() *Invoker
	Output   func() *Output

	// Logger пишет в stderr, чтобы не смешиваться с данными.
	Logger *slog.Logger
}
