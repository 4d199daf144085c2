package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/b24robots/internal/domain"
)

// Filter — фильтр выборки журнала.
type Filter struct {
	Robot  string
	Domain string
	Limit  int
}

// Repo — журнал вызовов.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo создаёт новый Repo.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Record сохраняет итог вызова.
func (r *Repo) Record(ctx context.Context, rec *domain.InvocationRecord) error {
	fileIDs := make([]string, len(rec.FileIDs))
	for i, id := range rec.FileIDs {
		fileIDs[i] = id.String()
	}

	query := `
		INSERT INTO robot_invocations (id, robot, domain, task_id, entity_type, entity_id,
		                               success, status_code, message, file_ids, callback,
		                               received_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.Robot,
		rec.Domain,
		nullInt(rec.TaskID),
		nullString(rec.EntityType),
		nullInt(rec.EntityID),
		rec.Success,
		rec.StatusCode,
		nullString(rec.Message),
		fileIDs,
		nullString(rec.Callback),
		rec.ReceivedAt,
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}

// List возвращает последние записи журнала.
func (r *Repo) List(ctx context.Context, filter Filter) ([]domain.InvocationRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, robot, domain, task_id, entity_type, entity_id, success, status_code,
		       message, file_ids, callback, received_at, duration_ms
		FROM robot_invocations
		WHERE ($1::text IS NULL OR robot = $1)
		  AND ($2::text IS NULL OR domain = $2)
		ORDER BY received_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, nullString(filter.Robot), nullString(filter.Domain), limit)
	if err != nil {
		return nil, fmt.Errorf("list invocations: %w", err)
	}
	defer rows.Close()

	var records []domain.InvocationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Prune удаляет записи старше before и возвращает их количество.
func (r *Repo) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM robot_invocations WHERE received_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune invocations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (*domain.InvocationRecord, error) {
	var (
		rec        domain.InvocationRecord
		taskID     *int
		entityType *string
		entityID   *int
		message    *string
		fileIDs    []string
		callback   *string
		durationMS int64
	)

	err := row.Scan(
		&rec.ID,
		&rec.Robot,
		&rec.Domain,
		&taskID,
		&entityType,
		&entityID,
		&rec.Success,
		&rec.StatusCode,
		&message,
		&fileIDs,
		&callback,
		&rec.ReceivedAt,
		&durationMS,
	)
	if err != nil {
		return nil, fmt.Errorf("scan invocation: %w", err)
	}

	if taskID != nil {
		rec.TaskID = *taskID
	}
	if entityType != nil {
		rec.EntityType = *entityType
	}
	if entityID != nil {
		rec.EntityID = *entityID
	}
	if message != nil {
		rec.Message = *message
	}
	if callback != nil {
		rec.Callback = *callback
	}
	for _, id := range fileIDs {
		rec.FileIDs = append(rec.FileIDs, domain.FileID(id))
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond

	return &rec, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
