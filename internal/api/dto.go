package api

import (
	"github.com/shaiso/b24robots/internal/domain"
	"github.com/shaiso/b24robots/internal/robot"
)

// RobotResponse — ответ роботов обработки результата задачи.
type RobotResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	FilesCount    int      `json:"files_count"`
	FilesIDs      []string `json:"files_ids"`
	TextResult    string   `json:"text_result"`
	EntityUpdated bool     `json:"entity_updated"`

	// FolderID — папка, куда переложены файлы (только relocate).
	FolderID string `json:"folder_id,omitempty"`

	Callback     string `json:"callback"`
	InvocationID string `json:"invocation_id"`
}

// RobotFromOutcome конвертирует robot.Outcome в RobotResponse.
func RobotFromOutcome(inv *domain.Invocation, out *robot.Outcome) RobotResponse {
	ids := make([]string, len(out.FileIDs))
	for i, id := range out.FileIDs {
		ids[i] = id.String()
	}

	return RobotResponse{
		Success:       out.Success,
		Message:       out.Message,
		FilesCount:    len(ids),
		FilesIDs:      ids,
		TextResult:    out.Text,
		EntityUpdated: out.EntityUpdated,
		FolderID:      out.FolderID,
		Callback:      string(out.Callback),
		InvocationID:  inv.ID.String(),
	}
}

// ContactResponse — ответ робота привязки контакта.
type ContactResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ContactID    string `json:"contact_id,omitempty"`
	EntityID     int    `json:"entity_id"`
	EntityType   string `json:"entity_type"`
	Callback     string `json:"callback"`
	InvocationID string `json:"invocation_id"`
}

// ContactFromOutcome конвертирует robot.ContactOutcome в ContactResponse.
func ContactFromOutcome(inv *domain.Invocation, req robot.ContactRequest, out *robot.ContactOutcome) ContactResponse {
	return ContactResponse{
		Success:      out.Success,
		Message:      out.Message,
		ContactID:    out.ContactID,
		EntityID:     req.EntityID,
		EntityType:   string(req.Kind),
		Callback:     string(out.Callback),
		InvocationID: inv.ID.String(),
	}
}
