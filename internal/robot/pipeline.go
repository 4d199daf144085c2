package robot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shaiso/b24robots/internal/bitrix"
	"github.com/shaiso/b24robots/internal/domain"
	"github.com/shaiso/b24robots/internal/telemetry"
)

// Mode — вариант конвейера.
type Mode string

const (
	// ModeResolve — только определить файлы и текст результата.
	ModeResolve Mode = "resolve"

	// ModeRelocate — переложить файлы результата в папку диска.
	ModeRelocate Mode = "relocate"

	// ModeAttach — записать файлы в поле сущности, множественность из свойств робота.
	ModeAttach Mode = "attach"

	// ModeAttachDetect — записать файлы в поле сущности, множественность из схемы.
	ModeAttachDetect Mode = "attach-detect"
)

// Valid проверяет, что режим известен.
func (m Mode) Valid() bool {
	switch m {
	case ModeResolve, ModeRelocate, ModeAttach, ModeAttachDetect:
		return true
	default:
		return false
	}
}

// NeedsTarget возвращает true для режимов, пишущих в сущность.
func (m Mode) NeedsTarget() bool {
	return m == ModeAttach || m == ModeAttachDetect
}

// Request — параметры запуска конвейера.
type Request struct {
	Mode   Mode
	TaskID int

	// Target — поле сущности (только для ModeAttach и ModeAttachDetect).
	Target *domain.EntityTarget

	// FieldMultiple — множественность поля для ModeAttach.
	FieldMultiple bool

	// FolderID — папка для ModeRelocate; пусто — найти автоматически.
	FolderID string
}

// Outcome — итог работы конвейера.
type Outcome struct {
	Success bool
	Message string

	// Files — файлы результата задачи с происхождением.
	Files []domain.FileRef

	// FileIDs — выходные идентификаторы: найденные (resolve),
	// новые (relocate) или записанные в поле (attach).
	FileIDs []domain.FileID

	Text          string
	EntityUpdated bool
	FolderID      string

	// Callback — итог отправки результата бизнес-процессу.
	Callback ReportStatus
}

// taskRecord — ответ tasks.task.get.
type taskRecord struct {
	Task *struct {
		ID          flexString `json:"id"`
		Title       string     `json:"title"`
		Description string     `json:"description"`
	} `json:"task"`
}

// Pipeline — единый конвейер обработки результата задачи.
type Pipeline struct {
	logger *slog.Logger
}

// NewPipeline создаёт Pipeline.
func NewPipeline(logger *slog.Logger) *Pipeline {
	return &Pipeline{logger: logger}
}

// Run выполняет конвейер для одного вызова робота.
//
// Ошибка возвращается только если не удалось получить задачу или её
// результаты, либо не найдена папка для перекладки. В этих случаях
// бизнес-процессу уже отправлен пустой результат. Ошибки записи в
// сущность не возвращаются, а попадают в Outcome с Success=false.
func (p *Pipeline) Run(ctx context.Context, api API, inv *domain.Invocation, req Request) (*Outcome, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}
	if req.Mode.NeedsTarget() && req.Target == nil {
		return nil, fmt.Errorf("mode %s: entity target required", req.Mode)
	}

	logger := telemetry.WithTaskID(telemetry.WithInvocationID(p.logger, inv.ID.String()), req.TaskID)
	logger = logger.With("mode", string(req.Mode))

	reporter := NewReporter(api, inv, logger)

	description, err := p.fetchTask(ctx, api, req.TaskID)
	if err != nil {
		logger.Warn("task lookup failed", "error", err)
		reporter.Report(ctx, domain.EmptyResult(err.Error()))
		return nil, err
	}

	resolution, err := NewResolver(api, logger).ResolveResultFiles(ctx, req.TaskID)
	if err != nil {
		logger.Error("task results lookup failed", "error", err)
		reporter.Report(ctx, domain.EmptyResult(err.Error()))
		return nil, err
	}

	out := &Outcome{
		Files: resolution.Files,
		Text:  resolution.Text,
	}
	if resolution.Entries == 0 || (len(resolution.Files) == 0 && resolution.Text == "") {
		logger.Debug("falling back to task description", "entries", resolution.Entries)
		out.Text = description
	}

	transfer := NewTransfer(api, logger)

	switch req.Mode {
	case ModeResolve:
		out.Success = true
		out.FileIDs = domain.IDs(resolution.Files)
		out.Message = "task result resolved"

	case ModeRelocate:
		if err := p.relocate(ctx, transfer, req, out, logger); err != nil {
			logger.Error("relocation failed", "error", err)
			reporter.Report(ctx, domain.EmptyResult(err.Error()))
			return nil, err
		}

	case ModeAttach, ModeAttachDetect:
		cardinality := CardinalityDetect
		if req.Mode == ModeAttach {
			cardinality = CardinalitySingle
			if req.FieldMultiple {
				cardinality = CardinalityMultiple
			}
		}

		updater := NewUpdater(api, transfer, NewSchemaInspector(api, logger), logger)
		report, err := updater.UpdateEntityField(ctx, *req.Target, resolution.Files, cardinality)
		if err != nil {
			logger.Warn("entity update failed", "error", err)
			out.Message = err.Error()
		} else {
			out.Success = true
			out.EntityUpdated = true
			out.FileIDs = report.WrittenIDs()
			out.Message = "entity field updated"
		}
	}

	result := domain.CallbackResult{
		Success:   out.Success,
		FileCount: len(out.FileIDs),
		FileIDs:   out.FileIDs,
		Text:      out.Text,
		Message:   out.Message,
	}
	if out.FolderID != "" {
		result.Extra = map[string]string{"folder_id": out.FolderID}
	}
	out.Callback = reporter.Report(ctx, result)

	logger.Info("pipeline finished",
		"success", out.Success,
		"files", domain.JoinIDs(out.FileIDs),
		"callback", out.Callback,
	)

	return out, nil
}

// fetchTask проверяет существование задачи и возвращает её описание.
func (p *Pipeline) fetchTask(ctx context.Context, api API, taskID int) (string, error) {
	resp, err := api.Call(ctx, "tasks.task.get", map[string]any{
		"taskId": taskID,
		"select": []string{"ID", "TITLE", "DESCRIPTION"},
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%w: #%d: %w", ErrTaskNotFound, taskID, err)
		}
		return "", fmt.Errorf("get task #%d: %w", taskID, err)
	}

	var record taskRecord
	if !resp.HasResult() || resp.Decode(&record) != nil || record.Task == nil {
		return "", fmt.Errorf("%w: #%d", ErrTaskNotFound, taskID)
	}
	return record.Task.Description, nil
}

// isNotFound — портал ответил ошибкой с кодом 400 или 404.
func isNotFound(err error) bool {
	e, ok := bitrix.AsError(err)
	if !ok || e.Kind != bitrix.KindRemote {
		return false
	}
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusNotFound
}

// relocate перекладывает файлы результата в папку диска.
// Ошибки по отдельным файлам не прерывают работу.
func (p *Pipeline) relocate(ctx context.Context, transfer *Transfer, req Request, out *Outcome, logger *slog.Logger) error {
	folderID := req.FolderID
	if folderID == "" {
		id, err := transfer.DiscoverFolder(ctx)
		if err != nil {
			return fmt.Errorf("discover folder: %w", err)
		}
		folderID = id
	}
	out.FolderID = folderID

	var failed []error
	for _, f := range out.Files {
		content, err := transfer.Download(ctx, f.ID)
		if err != nil {
			logger.Warn("file download failed, skipping", "file_id", f.ID, "error", err)
			failed = append(failed, err)
			continue
		}

		newID, err := transfer.UploadToFolder(ctx, folderID, content.Name, content.Data)
		if err != nil {
			logger.Warn("file upload failed, skipping", "file_id", f.ID, "error", err)
			failed = append(failed, err)
			continue
		}

		out.FileIDs = append(out.FileIDs, newID)
	}

	switch {
	case len(out.Files) == 0:
		out.Success = true
		out.Message = "no result files to relocate"
	case len(out.FileIDs) == 0:
		out.Message = fmt.Sprintf("no files relocated: %v", errors.Join(failed...))
	case len(failed) > 0:
		out.Success = true
		out.Message = fmt.Sprintf("relocated %d of %d files", len(out.FileIDs), len(out.Files))
	default:
		out.Success = true
		out.Message = "files relocated"
	}
	return nil
}
