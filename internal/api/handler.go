package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/b24robots/internal/bitrix"
	"github.com/shaiso/b24robots/internal/domain"
)

// Journal сохраняет итоги вызовов (internal/journal).
type Journal interface {
	Record(ctx context.Context, rec *domain.InvocationRecord) error
}

// Publisher публикует события о завершённых вызовах (internal/mq).
type Publisher interface {
	PublishInvocationCompleted(ctx context.Context, rec *domain.InvocationRecord) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	client    *bitrix.Client
	journal   Journal
	publisher Publisher
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Client *bitrix.Client

	// Journal — опционально, nil отключает журнал.
	Journal Journal

	// Publisher — опционально, nil отключает события.
	Publisher Publisher

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		client:    cfg.Client,
		journal:   cfg.Journal,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
	}
}

// completeTimeout — предел на запись журнала и публикацию события.
const completeTimeout = 5 * time.Second

// complete пишет итог вызова в журнал и публикует событие.
// Ошибки только логируются: ответ порталу уже сформирован.
// Отмена запроса (портал закрыл соединение) запись не прерывает.
func (h *Handler) complete(ctx context.Context, rec *domain.InvocationRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), completeTimeout)
	defer cancel()

	if h.journal != nil {
		if err := h.journal.Record(ctx, rec); err != nil {
			h.logger.Warn("failed to record invocation", "invocation_id", rec.ID, "error", err)
		}
	}

	if h.publisher != nil {
		if err := h.publisher.PublishInvocationCompleted(ctx, rec); err != nil {
			h.logger.Warn("failed to publish invocation.completed", "invocation_id", rec.ID, "error", err)
		}
	}
}
