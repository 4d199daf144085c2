package robot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/b24robots/internal/domain"
)

// resultEntry — элемент tasks.task.result.list.
type resultEntry struct {
	ID        flexString                 `json:"id"`
	CommentID flexString                 `json:"commentId"`
	Text      string                     `json:"text"`
	Files     orderedList[domain.FileID] `json:"files"`
}

// attachedObject — вложение комментария задачи.
type attachedObject struct {
	FileID domain.FileID `json:"FILE_ID"`
	Name   string        `json:"NAME"`
}

// commentItem — ответ task.commentitem.get.
type commentItem struct {
	ID              flexString                  `json:"ID"`
	AttachedObjects orderedList[attachedObject] `json:"ATTACHED_OBJECTS"`
}

// Resolution — итог определения файлов результата.
type Resolution struct {
	// Files — итоговые файлы с происхождением.
	Files []domain.FileRef

	// Text — текст выбранного результата (может быть пустым).
	Text string

	// Entries — сколько результатов вернул портал.
	Entries int

	// CommentID — комментарий выбранного результата, если есть.
	CommentID string
}

// Resolver определяет итоговый набор файлов результата задачи.
type Resolver struct {
	api    API
	logger *slog.Logger
}

// NewResolver создаёт Resolver.
func NewResolver(api API, logger *slog.Logger) *Resolver {
	return &Resolver{api: api, logger: logger}
}

// ResolveResultFiles возвращает файлы и текст результата задачи.
//
// Берётся последний результат в порядке ответа портала. Если у результата
// есть комментарий и во вложениях комментария нашёлся хотя бы один FILE_ID,
// эти идентификаторы целиком заменяют объявленные в files.
// Ошибка получения комментария не прерывает работу.
func (r *Resolver) ResolveResultFiles(ctx context.Context, taskID int) (*Resolution, error) {
	resp, err := r.api.Call(ctx, "tasks.task.result.list", map[string]any{"taskId": taskID})
	if err != nil {
		return nil, fmt.Errorf("list task results: %w", err)
	}

	var entries orderedList[resultEntry]
	if resp.HasResult() {
		if err := resp.Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode task results: %w", err)
		}
	}

	res := &Resolution{Entries: len(entries)}
	r.logger.Debug("task results received", "count", len(entries))

	if len(entries) == 0 {
		return res, nil
	}

	entry := entries[len(entries)-1]
	res.Text = entry.Text
	res.CommentID = string(entry.CommentID)
	res.Files = domain.Declared(entry.Files)

	if res.CommentID == "" {
		r.logger.Debug("task result has no comment", "declared", len(res.Files))
		return res, nil
	}

	reconciled, err := r.commentFiles(ctx, taskID, res.CommentID)
	if err != nil {
		r.logger.Warn("comment lookup failed, using declared files",
			"comment_id", res.CommentID,
			"error", err,
		)
		return res, nil
	}

	if len(reconciled) == 0 {
		r.logger.Debug("comment has no attached files", "comment_id", res.CommentID)
		return res, nil
	}

	r.logger.Info("result files reconciled from comment",
		"comment_id", res.CommentID,
		"declared", domain.JoinIDs(domain.IDs(res.Files)),
		"reconciled", domain.JoinIDs(domain.IDs(reconciled)),
	)
	res.Files = reconciled

	return res, nil
}

// commentFiles возвращает FILE_ID вложений комментария.
func (r *Resolver) commentFiles(ctx context.Context, taskID int, commentID string) ([]domain.FileRef, error) {
	resp, err := r.api.Call(ctx, "task.commentitem.get", map[string]any{
		"TASKID": taskID,
		"ITEMID": commentID,
	})
	if err != nil {
		return nil, err
	}
	if !resp.HasResult() {
		return nil, nil
	}

	var item commentItem
	if err := resp.Decode(&item); err != nil {
		return nil, fmt.Errorf("decode comment: %w", err)
	}

	ids := make([]domain.FileID, 0, len(item.AttachedObjects))
	for _, obj := range item.AttachedObjects {
		if obj.FileID != "" {
			ids = append(ids, obj.FileID)
		}
	}
	return domain.Reconciled(ids), nil
}
