package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер cron-выражений (5 полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Store — хранилище, из которого удаляются старые записи.
type Store interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Pruner периодически удаляет старые записи журнала.
type Pruner struct {
	store     Store
	schedule  cron.Schedule
	retention time.Duration
	logger    *slog.Logger
}

// PrunerConfig — конфигурация Pruner.
type PrunerConfig struct {
	Store     Store
	Spec      string        // cron-выражение (default: "0 3 * * *")
	Retention time.Duration // сколько хранить записи (default: 720h)
	Logger    *slog.Logger
}

// NewPruner создаёт Pruner. Возвращает ошибку для невалидного cron-выражения.
func NewPruner(cfg PrunerConfig) (*Pruner, error) {
	spec := cfg.Spec
	if spec == "" {
		spec = "0 3 * * *"
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", spec, err)
	}

	return &Pruner{
		store:     cfg.Store,
		schedule:  schedule,
		retention: retention,
		logger:    cfg.Logger,
	}, nil
}

// Next возвращает время следующей очистки после from.
func (p *Pruner) Next(from time.Time) time.Time {
	return p.schedule.Next(from)
}

// Tick удаляет записи старше now - retention.
func (p *Pruner) Tick(ctx context.Context, now time.Time) error {
	before := now.Add(-p.retention)

	deleted, err := p.store.Prune(ctx, before)
	if err != nil {
		return err
	}

	p.logger.Info("journal pruned", "before", before, "deleted", deleted)
	return nil
}

// Run выполняет очистку по расписанию до отмены контекста.
func (p *Pruner) Run(ctx context.Context) {
	for {
		next := p.Next(time.Now())
		p.logger.Debug("next journal prune", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case now := <-timer.C:
			if err := p.Tick(ctx, now); err != nil {
				p.logger.Error("journal prune failed", "error", err)
			}
		}
	}
}
