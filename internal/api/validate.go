package api

import (
	"errors"
	"strings"

	"github.com/shaiso/b24robots/internal/domain"
	"github.com/shaiso/b24robots/internal/robot"
)

// ValidationError — в вызове нет обязательных полей или они некорректны.
type ValidationError struct {
	Missing []string
	Invalid []string
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) missing(field string) {
	e.Missing = append(e.Missing, field)
}

func (e *ValidationError) invalid(field string) {
	e.Invalid = append(e.Invalid, field)
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

// IsValidationError проверяет, что ошибка — ошибка валидации.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// validateAuth проверяет авторизацию портала.
func validateAuth(req *RobotRequest, verr *ValidationError) {
	if strings.TrimSpace(req.Auth.AccessToken) == "" {
		verr.missing("access_token")
	}
	if req.Auth.Host() == "" {
		verr.missing("domain")
	}
}

// pipelineRequest собирает параметры конвейера из свойств робота.
func pipelineRequest(mode robot.Mode, req *RobotRequest) (robot.Request, error) {
	verr := &ValidationError{}
	validateAuth(req, verr)

	props := req.Properties
	out := robot.Request{
		Mode:     mode,
		FolderID: props.Get("folder_id"),
	}

	taskID, ok, err := props.Int("task_id")
	switch {
	case !ok:
		verr.missing("task_id")
	case err != nil || taskID <= 0:
		verr.invalid("task_id")
	default:
		out.TaskID = taskID
	}

	if mode.NeedsTarget() {
		target, ok := entityTarget(props, verr)
		if ok {
			out.Target = &target
		}
		out.FieldMultiple = props.Flag("field_multiple")
	}

	if !verr.empty() {
		return robot.Request{}, verr
	}
	return out, nil
}

// entityTarget разбирает entity_type, entity_id, field_code и smart_process_id.
func entityTarget(props Properties, verr *ValidationError) (domain.EntityTarget, bool) {
	valid := true

	var kind domain.EntityKind
	if raw := props.Get("entity_type"); raw == "" {
		verr.missing("entity_type")
		valid = false
	} else if k, err := domain.ParseEntityKind(raw); err != nil {
		verr.invalid("entity_type")
		valid = false
	} else {
		kind = k
	}

	entityID, ok, err := props.Int("entity_id")
	switch {
	case !ok:
		verr.missing("entity_id")
		valid = false
	case err != nil || entityID <= 0:
		verr.invalid("entity_id")
		valid = false
	}

	fieldCode := props.Get("field_code")
	if fieldCode == "" {
		verr.missing("field_code")
		valid = false
	}

	smartID := 0
	if kind == domain.EntitySmartProcess {
		id, ok, err := props.Int("smart_process_id")
		switch {
		case !ok:
			verr.missing("smart_process_id")
			valid = false
		case err != nil || id <= 0:
			verr.invalid("smart_process_id")
			valid = false
		default:
			smartID = id
		}
	}

	if !valid {
		return domain.EntityTarget{}, false
	}

	target, err := domain.NewEntityTarget(kind, entityID, fieldCode, smartID)
	if err != nil {
		verr.invalid("smart_process_id")
		return domain.EntityTarget{}, false
	}
	return target, true
}

// contactRequest собирает параметры робота привязки контакта.
// Принимаются и исходные имена свойств робота (ID, Phone).
func contactRequest(req *RobotRequest) (robot.ContactRequest, error) {
	verr := &ValidationError{}
	validateAuth(req, verr)

	props := req.Properties
	out := robot.ContactRequest{Phone: props.Get("phone", "Phone")}

	entityID, ok, err := props.Int("entity_id", "ID")
	switch {
	case !ok:
		verr.missing("entity_id")
	case err != nil || entityID <= 0:
		verr.invalid("entity_id")
	default:
		out.EntityID = entityID
	}

	if out.Phone == "" {
		verr.missing("phone")
	}

	switch raw := props.Get("entity_type"); raw {
	case "":
		verr.missing("entity_type")
	case string(domain.EntityLead), string(domain.EntityDeal):
		out.Kind = domain.EntityKind(raw)
	default:
		verr.invalid("entity_type")
	}

	if !verr.empty() {
		return robot.ContactRequest{}, verr
	}
	return out, nil
}
