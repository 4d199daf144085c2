package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// EntityKind — тип CRM-сущности, в поле которой пишется результат.
type EntityKind string

const (
	EntityLead         EntityKind = "lead"
	EntityContact      EntityKind = "contact"
	EntityCompany      EntityKind = "company"
	EntityDeal         EntityKind = "deal"
	EntitySmartProcess EntityKind = "smart_process"
)

// schemaTypeIDs — фиксированные entityTypeId портала.
var schemaTypeIDs = map[EntityKind]int{
	EntityLead:    1,
	EntityDeal:    2,
	EntityContact: 3,
	EntityCompany: 4,
}

// ParseEntityKind разбирает тип сущности из свойства робота.
func ParseEntityKind(s string) (EntityKind, error) {
	kind := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case EntityLead, EntityContact, EntityCompany, EntityDeal, EntitySmartProcess:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEntityKind, s)
	}
}

// EntityTarget — поле сущности, в которое записываются файлы.
type EntityTarget struct {
	Kind      EntityKind
	EntityID  int
	FieldCode string

	// SmartProcessTypeID — entityTypeId смарт-процесса, обязателен только для EntitySmartProcess.
	SmartProcessTypeID int
}

// NewEntityTarget создаёт цель обновления.
//
// Для смарт-процесса код поля нормализуется здесь один раз, и дальше
// одно и то же значение уходит и в запрос схемы, и в обновление.
func NewEntityTarget(kind EntityKind, entityID int, fieldCode string, smartProcessTypeID int) (EntityTarget, error) {
	fieldCode = strings.TrimSpace(fieldCode)

	if kind == EntitySmartProcess {
		if smartProcessTypeID <= 0 {
			return EntityTarget{}, ErrSmartProcessTypeRequired
		}
		fieldCode = NormalizeFieldCode(fieldCode)
	} else {
		smartProcessTypeID = 0
	}

	return EntityTarget{
		Kind:               kind,
		EntityID:           entityID,
		FieldCode:          fieldCode,
		SmartProcessTypeID: smartProcessTypeID,
	}, nil
}

// SchemaTypeID возвращает entityTypeId для запроса схемы полей.
func (t EntityTarget) SchemaTypeID() (int, error) {
	if t.Kind == EntitySmartProcess {
		if t.SmartProcessTypeID <= 0 {
			return 0, ErrSmartProcessTypeRequired
		}
		return t.SmartProcessTypeID, nil
	}

	id, ok := schemaTypeIDs[t.Kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntityKind, t.Kind)
	}
	return id, nil
}

// ufCrmPattern — пользовательское поле в верхнем регистре: UF_CRM_<цифры>[_<цифры>].
var ufCrmPattern = regexp.MustCompile(`^UF_CRM_(\d+(?:_\d+)?)$`)

// NormalizeFieldCode переводит UF_CRM_<d>[_<d>] в ufCrm_<d>[_<d>].
// Остальные коды возвращаются без изменений.
func NormalizeFieldCode(code string) string {
	m := ufCrmPattern.FindStringSubmatch(code)
	if m == nil {
		return code
	}
	return "ufCrm_" + m[1]
}
