package robot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shaiso/b24robots/internal/domain"
)

// fieldSchema — описание поля из crm.item.fields.
type fieldSchema struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	IsMultiple any    `json:"isMultiple"`
	Multiple   any    `json:"multiple"`
}

// multivalued проверяет оба варианта флага множественности.
func (f fieldSchema) multivalued() bool {
	return domain.IsTruthy(f.IsMultiple) || domain.IsTruthy(f.Multiple)
}

// SchemaInspector определяет множественность поля сущности.
//
// Схема запрашивается заново при каждом вызове и не кэшируется:
// администратор портала может поменять поле между запусками робота.
type SchemaInspector struct {
	api    API
	logger *slog.Logger
}

// NewSchemaInspector создаёт SchemaInspector.
func NewSchemaInspector(api API, logger *slog.Logger) *SchemaInspector {
	return &SchemaInspector{api: api, logger: logger}
}

// IsFieldMultivalued возвращает true, если поле цели множественное.
//
// Ошибки: domain.ErrSmartProcessTypeRequired, ErrSchemaUnavailable, ErrFieldNotFound.
func (s *SchemaInspector) IsFieldMultivalued(ctx context.Context, target domain.EntityTarget) (bool, error) {
	typeID, err := target.SchemaTypeID()
	if err != nil {
		return false, err
	}

	resp, err := s.api.Call(ctx, "crm.item.fields", map[string]any{"entityTypeId": typeID})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrSchemaUnavailable, err)
	}

	var payload struct {
		Fields map[string]json.RawMessage `json:"fields"`
	}
	if !resp.HasResult() {
		return false, fmt.Errorf("%w: empty result", ErrSchemaUnavailable)
	}
	if err := resp.Decode(&payload); err != nil {
		return false, fmt.Errorf("%w: %w", ErrSchemaUnavailable, err)
	}
	if payload.Fields == nil {
		return false, fmt.Errorf("%w: no fields in result", ErrSchemaUnavailable)
	}

	raw, ok := lookupField(payload.Fields, target.FieldCode)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrFieldNotFound, target.FieldCode)
	}

	var field fieldSchema
	if err := json.Unmarshal(raw, &field); err != nil {
		return false, fmt.Errorf("%w: field %s: %w", ErrSchemaUnavailable, target.FieldCode, err)
	}

	multiple := field.multivalued()
	s.logger.Debug("field cardinality resolved",
		"entity_type_id", typeID,
		"field_code", target.FieldCode,
		"multiple", multiple,
	)
	return multiple, nil
}

// lookupField ищет поле по коду как есть, затем по camelCase-варианту.
// crm.item.fields отдаёт пользовательские поля в виде ufCrm_*, а роботы
// лидов и сделок обычно настроены с кодом UF_CRM_*.
func lookupField(fields map[string]json.RawMessage, code string) (json.RawMessage, bool) {
	if raw, ok := fields[code]; ok {
		return raw, true
	}
	if alias := domain.NormalizeFieldCode(code); alias != code {
		raw, ok := fields[alias]
		return raw, ok
	}
	return nil, false
}
