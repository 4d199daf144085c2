package robot

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/b24robots/internal/domain"
)

// updatePlatform — портал с двумя файлами и успешным обновлением.
func updatePlatform() *fakePlatform {
	api := newFakePlatform()
	api.addFile("7001", "a.pdf", []byte("first file"))
	api.addFile("7002", "b.pdf", []byte("second file"))
	api.respond("crm.deal.update", `true`)
	api.respond("crm.item.update", `{"item": {"id": 7}}`)
	return api
}

func newTestUpdater(api *fakePlatform) *Updater {
	logger := discardLogger()
	return NewUpdater(api, NewTransfer(api, logger), NewSchemaInspector(api, logger), logger)
}

// updatedField возвращает значение поля из единственного вызова метода обновления.
func updatedField(t *testing.T, api *fakePlatform, method, field string) any {
	t.Helper()
	calls := api.callsOf(method)
	if len(calls) != 1 {
		t.Fatalf("expected 1 %s call, got %d", method, len(calls))
	}
	fields, ok := calls[0].Params["fields"].(map[string]any)
	if !ok {
		t.Fatalf("unexpected fields %#v", calls[0].Params["fields"])
	}
	value, ok := fields[field]
	if !ok {
		t.Fatalf("field %s not in payload %v", field, fields)
	}
	return value
}

func TestUpdater_SingleValuedUsesFirstFile(t *testing.T) {
	api := updatePlatform()
	target := mustTarget(t, domain.EntityDeal, 15, "UF_CRM_FILE", 0)

	report, err := newTestUpdater(api).UpdateEntityField(context.Background(), target,
		domain.Declared(fileIDs("7001", "7002")), CardinalitySingle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, ok := updatedField(t, api, "crm.deal.update", "UF_CRM_FILE").([]string)
	if !ok {
		t.Fatalf("expected single [name, base64] value, got %#v", value)
	}
	if value[0] != "a.pdf" || string(decodeBase64(t, value[1])) != "first file" {
		t.Errorf("expected first file, got %v", value)
	}

	equalIDs(t, report.WrittenIDs(), fileIDs("7001"))
	if report.Downloaded != 2 || report.Multiple {
		t.Errorf("unexpected report %+v", report)
	}
	if id := api.callsOf("crm.deal.update")[0].Params["id"]; id != 15 {
		t.Errorf("expected id 15, got %v", id)
	}
}

func TestUpdater_MultiValuedSendsAllFiles(t *testing.T) {
	api := updatePlatform()
	target := mustTarget(t, domain.EntityDeal, 15, "UF_CRM_FILES", 0)

	report, err := newTestUpdater(api).UpdateEntityField(context.Background(), target,
		domain.Declared(fileIDs("7001", "7002")), CardinalityMultiple)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	values, ok := updatedField(t, api, "crm.deal.update", "UF_CRM_FILES").([]any)
	if !ok || len(values) != 2 {
		t.Fatalf("expected two-element payload, got %#v", values)
	}
	for i, want := range []string{"first file", "second file"} {
		pair := values[i].([]string)
		if got := string(decodeBase64(t, pair[1])); got != want {
			t.Errorf("value %d: expected %q, got %q", i, want, got)
		}
	}
	equalIDs(t, report.WrittenIDs(), fileIDs("7001", "7002"))
}

func TestUpdater_DetectsCardinalityFromSchema(t *testing.T) {
	api := updatePlatform()
	api.respond("crm.item.fields", `{"fields": {"UF_CRM_FILES": {"isMultiple": "Y"}}}`)
	target := mustTarget(t, domain.EntityDeal, 15, "UF_CRM_FILES", 0)

	report, err := newTestUpdater(api).UpdateEntityField(context.Background(), target,
		domain.Declared(fileIDs("7001", "7002")), CardinalityDetect)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Multiple {
		t.Error("expected multivalued field")
	}
	if len(api.callsOf("crm.item.fields")) != 1 {
		t.Error("expected schema lookup")
	}
}

func TestUpdater_SmartProcess(t *testing.T) {
	api := updatePlatform()
	api.respond("crm.item.fields", `{"fields": {"ufCrm_1758796871250": {"isMultiple": false}}}`)
	target := mustTarget(t, domain.EntitySmartProcess, 7, "UF_CRM_1758796871250", 1040)

	_, err := newTestUpdater(api).UpdateEntityField(context.Background(), target,
		domain.Declared(fileIDs("7001")), CardinalityDetect)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Нормализованный код уходит и в схему, и в обновление
	value := updatedField(t, api, "crm.item.update", "ufCrm_1758796871250")
	wrapped, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("expected fileData wrapper, got %#v", value)
	}
	if pair := wrapped["fileData"].([]string); pair[0] != "a.pdf" {
		t.Errorf("unexpected fileData %v", pair)
	}

	params := api.callsOf("crm.item.update")[0].Params
	if params["entityTypeId"] != 1040 || params["id"] != 7 {
		t.Errorf("unexpected params %v", params)
	}
}

func TestUpdater_DropsFailedDownloads(t *testing.T) {
	api := updatePlatform()
	target := mustTarget(t, domain.EntityDeal, 15, "UF_CRM_FILES", 0)

	report, err := newTestUpdater(api).UpdateEntityField(context.Background(), target,
		domain.Declared(fileIDs("404", "7002")), CardinalityMultiple)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	values := updatedField(t, api, "crm.deal.update", "UF_CRM_FILES").([]any)
	if len(values) != 1 {
		t.Fatalf("expected 1 value, got %d", len(values))
	}
	equalIDs(t, report.WrittenIDs(), fileIDs("7002"))
}

func TestUpdater_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files []domain.FileRef
		setup func(api *fakePlatform)
		card  Cardinality
		want  error
	}{
		{
			name:  "no files survive",
			files: domain.Declared(fileIDs("404")),
			card:  CardinalitySingle,
			want:  ErrNoFilesAvailable,
		},
		{
			name:  "no files at all",
			files: nil,
			card:  CardinalitySingle,
			want:  ErrNoFilesAvailable,
		},
		{
			name:  "update returns false",
			files: domain.Declared(fileIDs("7001")),
			setup: func(api *fakePlatform) { api.respond("crm.deal.update", `false`) },
			card:  CardinalitySingle,
			want:  ErrUpdateRejected,
		},
		{
			name:  "schema field missing",
			files: domain.Declared(fileIDs("7001")),
			setup: func(api *fakePlatform) { api.respond("crm.item.fields", `{"fields": {}}`) },
			card:  CardinalityDetect,
			want:  ErrFieldNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := updatePlatform()
			if tt.setup != nil {
				tt.setup(api)
			}

			_, err := newTestUpdater(api).UpdateEntityField(context.Background(),
				mustTarget(t, domain.EntityDeal, 15, "UF_CRM_FILES", 0), tt.files, tt.card)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !IsUpdateError(err) {
				t.Errorf("expected *UpdateError, got %T", err)
			}
		})
	}
}

func TestUpdater_UpdateMethods(t *testing.T) {
	for kind, method := range updateMethods {
		api := updatePlatform()
		api.respond(method, `true`)

		_, err := newTestUpdater(api).UpdateEntityField(context.Background(),
			mustTarget(t, kind, 3, "UF_CRM_FILE", 0), domain.Declared(fileIDs("7001")), CardinalitySingle)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", kind, err)
		}
		if len(api.callsOf(method)) != 1 {
			t.Errorf("%s: expected %s call", kind, method)
		}
	}
}
