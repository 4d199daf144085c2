package robot

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/shaiso/b24robots/internal/domain"
)

func decodeBase64(t *testing.T, s string) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	return data
}

func mustTarget(t *testing.T, kind domain.EntityKind, id int, field string, smartID int) domain.EntityTarget {
	t.Helper()
	target, err := domain.NewEntityTarget(kind, id, field, smartID)
	if err != nil {
		t.Fatalf("target: %v", err)
	}
	return target
}

func TestSchemaInspector_Truthiness(t *testing.T) {
	tests := []struct {
		field string
		want  bool
	}{
		{`{"isMultiple": true}`, true},
		{`{"isMultiple": "Y"}`, true},
		{`{"isMultiple": 1}`, true},
		{`{"multiple": "Y"}`, true},
		{`{"isMultiple": false, "multiple": 1}`, true},
		{`{"isMultiple": false}`, false},
		{`{"isMultiple": "N"}`, false},
		{`{"isMultiple": 0}`, false},
		{`{"type": "file"}`, false},
	}

	for _, tt := range tests {
		api := newFakePlatform()
		api.respond("crm.item.fields", `{"fields": {"UF_CRM_FILES": `+tt.field+`}}`)

		got, err := NewSchemaInspector(api, discardLogger()).IsFieldMultivalued(
			context.Background(), mustTarget(t, domain.EntityDeal, 5, "UF_CRM_FILES", 0))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.field, err)
		}
		if got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.field, tt.want, got)
		}
	}
}

func TestSchemaInspector_EntityTypeIDs(t *testing.T) {
	tests := []struct {
		kind    domain.EntityKind
		smartID int
		want    int
	}{
		{domain.EntityLead, 0, 1},
		{domain.EntityDeal, 0, 2},
		{domain.EntityContact, 0, 3},
		{domain.EntityCompany, 0, 4},
		{domain.EntitySmartProcess, 1040, 1040},
	}

	for _, tt := range tests {
		api := newFakePlatform()
		api.respond("crm.item.fields", `{"fields": {"title": {"isMultiple": false}}}`)

		_, err := NewSchemaInspector(api, discardLogger()).IsFieldMultivalued(
			context.Background(), mustTarget(t, tt.kind, 1, "title", tt.smartID))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.kind, err)
		}

		calls := api.callsOf("crm.item.fields")
		if len(calls) != 1 || calls[0].Params["entityTypeId"] != tt.want {
			t.Errorf("%s: expected entityTypeId %d, got %v", tt.kind, tt.want, calls)
		}
	}
}

func TestSchemaInspector_SmartProcessNormalizedCode(t *testing.T) {
	api := newFakePlatform()
	api.respond("crm.item.fields", `{"fields": {"ufCrm_1758796871250": {"isMultiple": true}}}`)

	target := mustTarget(t, domain.EntitySmartProcess, 7, "UF_CRM_1758796871250", 1040)
	got, err := NewSchemaInspector(api, discardLogger()).IsFieldMultivalued(context.Background(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("expected multivalued field")
	}
}

func TestSchemaInspector_CamelCaseAlias(t *testing.T) {
	// crm.item.fields отдаёт поля лида в camelCase
	api := newFakePlatform()
	api.respond("crm.item.fields", `{"fields": {"ufCrm_5_1700000000": {"isMultiple": "Y"}}}`)

	got, err := NewSchemaInspector(api, discardLogger()).IsFieldMultivalued(
		context.Background(), mustTarget(t, domain.EntityLead, 7, "UF_CRM_5_1700000000", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("expected multivalued field")
	}
}

func TestSchemaInspector_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(api *fakePlatform)
		want  error
	}{
		{
			name:  "field absent",
			setup: func(api *fakePlatform) { api.respond("crm.item.fields", `{"fields": {"title": {}}}`) },
			want:  ErrFieldNotFound,
		},
		{
			name:  "no fields container",
			setup: func(api *fakePlatform) { api.respond("crm.item.fields", `{"items": []}`) },
			want:  ErrSchemaUnavailable,
		},
		{
			name:  "call fails",
			setup: func(api *fakePlatform) { api.fail("crm.item.fields", 403) },
			want:  ErrSchemaUnavailable,
		},
		{
			name:  "empty result",
			setup: func(api *fakePlatform) { api.respond("crm.item.fields", `null`) },
			want:  ErrSchemaUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakePlatform()
			tt.setup(api)

			_, err := NewSchemaInspector(api, discardLogger()).IsFieldMultivalued(
				context.Background(), mustTarget(t, domain.EntityDeal, 1, "UF_CRM_FILES", 0))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSchemaInspector_SmartProcessTypeRequired(t *testing.T) {
	api := newFakePlatform()
	target := domain.EntityTarget{Kind: domain.EntitySmartProcess, EntityID: 1, FieldCode: "ufCrm_1"}

	_, err := NewSchemaInspector(api, discardLogger()).IsFieldMultivalued(context.Background(), target)
	if !errors.Is(err, domain.ErrSmartProcessTypeRequired) {
		t.Fatalf("expected ErrSmartProcessTypeRequired, got %v", err)
	}
	if len(api.calls) != 0 {
		t.Error("expected no remote calls")
	}
}
