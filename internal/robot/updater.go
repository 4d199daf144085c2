package robot

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/shaiso/b24robots/internal/domain"
)

// Cardinality — откуда берётся множественность целевого поля.
type Cardinality int

const (
	// CardinalityDetect — спросить схему полей портала.
	CardinalityDetect Cardinality = iota

	// CardinalitySingle — поле одиночное.
	CardinalitySingle

	// CardinalityMultiple — поле множественное.
	CardinalityMultiple
)

// updateMethods — методы обновления для сущностей с фиксированным типом.
var updateMethods = map[domain.EntityKind]string{
	domain.EntityLead:    "crm.lead.update",
	domain.EntityContact: "crm.contact.update",
	domain.EntityCompany: "crm.company.update",
	domain.EntityDeal:    "crm.deal.update",
}

// UpdateReport — что именно записано в поле.
type UpdateReport struct {
	// Written — файлы, попавшие в значение поля.
	Written []domain.FileContent

	// Downloaded — сколько файлов удалось скачать.
	Downloaded int

	// Multiple — поле оказалось множественным.
	Multiple bool
}

// WrittenIDs возвращает идентификаторы записанных файлов.
func (r *UpdateReport) WrittenIDs() []domain.FileID {
	ids := make([]domain.FileID, len(r.Written))
	for i, f := range r.Written {
		ids[i] = f.ID
	}
	return ids
}

// Updater записывает файлы в поле CRM-сущности.
type Updater struct {
	api      API
	transfer *Transfer
	schema   *SchemaInspector
	logger   *slog.Logger
}

// NewUpdater создаёт Updater.
func NewUpdater(api API, transfer *Transfer, schema *SchemaInspector, logger *slog.Logger) *Updater {
	return &Updater{api: api, transfer: transfer, schema: schema, logger: logger}
}

// UpdateEntityField скачивает файлы и записывает их в поле цели.
//
// Файлы, которые не удалось скачать, пропускаются. Все ошибки
// возвращаются обёрнутыми в *UpdateError.
func (u *Updater) UpdateEntityField(ctx context.Context, target domain.EntityTarget, files []domain.FileRef, cardinality Cardinality) (*UpdateReport, error) {
	contents := make([]domain.FileContent, 0, len(files))
	for _, f := range files {
		content, err := u.transfer.Download(ctx, f.ID)
		if err != nil {
			u.logger.Warn("file download failed, skipping",
				"file_id", f.ID,
				"provenance", f.Provenance,
				"error", err,
			)
			continue
		}
		contents = append(contents, *content)
	}

	if len(contents) == 0 {
		return nil, &UpdateError{Err: ErrNoFilesAvailable}
	}

	multiple, err := u.resolveCardinality(ctx, target, cardinality)
	if err != nil {
		return nil, &UpdateError{Err: err}
	}

	report := &UpdateReport{Downloaded: len(contents), Multiple: multiple}

	var value any
	if multiple {
		values := make([]any, len(contents))
		for i, c := range contents {
			values[i] = FileValue(target.Kind, c)
		}
		value = values
		report.Written = contents
	} else {
		if len(contents) > 1 {
			u.logger.Warn("field is single-valued, extra files discarded",
				"field_code", target.FieldCode,
				"kept", contents[0].ID,
				"discarded", len(contents)-1,
			)
		}
		value = FileValue(target.Kind, contents[0])
		report.Written = contents[:1]
	}

	if err := u.dispatch(ctx, target, map[string]any{target.FieldCode: value}); err != nil {
		return nil, &UpdateError{Err: err}
	}

	u.logger.Info("entity field updated",
		"entity_type", target.Kind,
		"entity_id", target.EntityID,
		"field_code", target.FieldCode,
		"files", len(report.Written),
		"multiple", multiple,
	)

	return report, nil
}

func (u *Updater) resolveCardinality(ctx context.Context, target domain.EntityTarget, c Cardinality) (bool, error) {
	switch c {
	case CardinalitySingle:
		return false, nil
	case CardinalityMultiple:
		return true, nil
	default:
		return u.schema.IsFieldMultivalued(ctx, target)
	}
}

// dispatch вызывает метод обновления для типа сущности.
func (u *Updater) dispatch(ctx context.Context, target domain.EntityTarget, fields map[string]any) error {
	var (
		method string
		params map[string]any
	)

	if target.Kind == domain.EntitySmartProcess {
		if target.SmartProcessTypeID <= 0 {
			return domain.ErrSmartProcessTypeRequired
		}
		method = "crm.item.update"
		params = map[string]any{
			"entityTypeId": target.SmartProcessTypeID,
			"id":           target.EntityID,
			"fields":       fields,
		}
	} else {
		m, ok := updateMethods[target.Kind]
		if !ok {
			return fmt.Errorf("%w: %q", domain.ErrUnknownEntityKind, target.Kind)
		}
		method = m
		params = map[string]any{
			"id":     target.EntityID,
			"fields": fields,
		}
	}

	resp, err := u.api.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if !resp.HasResult() {
		return fmt.Errorf("%w: %s returned no result", ErrUpdateRejected, method)
	}
	return nil
}

// FileValue формирует значение файлового поля: [имя, base64].
// Для смарт-процессов пара оборачивается в {"fileData": [...]}.
func FileValue(kind domain.EntityKind, content domain.FileContent) any {
	pair := []string{content.Name, base64.StdEncoding.EncodeToString(content.Data)}
	if kind == domain.EntitySmartProcess {
		return map[string]any{"fileData": pair}
	}
	return pair
}
