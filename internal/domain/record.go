package domain

import (
	"time"

	"github.com/google/uuid"
)

// InvocationRecord — итог обработанного вызова робота.
//
// Пишется в журнал и публикуется событием. Токены авторизации сюда не попадают.
type InvocationRecord struct {
	ID         uuid.UUID `json:"id"`
	Robot      string    `json:"robot"`
	Domain     string    `json:"domain"`
	TaskID     int       `json:"task_id,omitempty"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   int       `json:"entity_id,omitempty"`

	Success    bool     `json:"success"`
	StatusCode int      `json:"status_code"`
	Message    string   `json:"message,omitempty"`
	FileIDs    []FileID `json:"file_ids,omitempty"`

	// Callback — итог отправки результата бизнес-процессу (skipped, sent, failed).
	Callback string `json:"callback,omitempty"`

	ReceivedAt time.Time     `json:"received_at"`
	Duration   time.Duration `json:"duration"`
}

// NewInvocationRecord создаёт запись по контексту вызова.
func NewInvocationRecord(inv *Invocation) *InvocationRecord {
	return &InvocationRecord{
		ID:         inv.ID,
		Robot:      inv.Robot,
		Domain:     inv.Auth.Host(),
		ReceivedAt: inv.ReceivedAt,
	}
}

// Finish фиксирует HTTP статус и длительность обработки.
func (r *InvocationRecord) Finish(statusCode int, now time.Time) {
	r.StatusCode = statusCode
	r.Duration = now.Sub(r.ReceivedAt)
}
