package robot

import (
	"context"
	"log/slog"

	"github.com/shaiso/b24robots/internal/domain"
	"github.com/shaiso/b24robots/internal/telemetry"
)

// ReportStatus — итог отправки результата бизнес-процессу.
type ReportStatus string

const (
	// ReportSkipped — event_token нет, отправлять некуда.
	ReportSkipped ReportStatus = "skipped"

	// ReportSent — bizproc.event.send выполнен.
	ReportSent ReportStatus = "sent"

	// ReportFailed — bizproc.event.send завершился ошибкой.
	ReportFailed ReportStatus = "failed"
)

// Reporter отправляет результат вызова в бизнес-процесс.
//
// Один Reporter обслуживает одно обращение: event_token одноразовый,
// поэтому повторный Report ничего не отправляет.
type Reporter struct {
	api    API
	inv    *domain.Invocation
	logger *slog.Logger

	status ReportStatus
}

// NewReporter создаёт Reporter для обращения.
func NewReporter(api API, inv *domain.Invocation, logger *slog.Logger) *Reporter {
	return &Reporter{api: api, inv: inv, logger: logger}
}

// Report отправляет результат через bizproc.event.send.
//
// Без event_token сетевого вызова нет. Ошибка отправки логируется
// и не возвращается: ответ на HTTP запрос остаётся основным результатом.
func (r *Reporter) Report(ctx context.Context, result domain.CallbackResult) ReportStatus {
	if r.status != "" {
		r.logger.Debug("callback already reported", "status", r.status)
		return r.status
	}

	if !r.inv.HasEventToken() {
		r.logger.Debug("no event token, callback skipped")
		r.status = ReportSkipped
		telemetry.ObserveCallback(string(ReportSkipped))
		return r.status
	}

	_, err := r.api.Call(ctx, "bizproc.event.send", map[string]any{
		"event_token":   r.inv.EventToken,
		"return_values": result.ReturnValues(),
	})
	if err != nil {
		r.logger.Warn("callback delivery failed", "error", err)
		r.status = ReportFailed
	} else {
		r.logger.Debug("callback delivered", "success", result.Success)
		r.status = ReportSent
	}

	telemetry.ObserveCallback(string(r.status))
	return r.status
}

// Status возвращает итог отправки (пусто, если Report не вызывался).
func (r *Reporter) Status() ReportStatus {
	return r.status
}
