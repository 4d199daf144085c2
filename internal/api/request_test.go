package api

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaiso/b24robots/internal/domain"
	"github.com/shaiso/b24robots/internal/robot"
)

func TestParseRobotRequest_JSON(t *testing.T) {
	body := `{
		"auth": {"access_token": "tok", "domain": "portal.bitrix24.ru"},
		"properties": {"task_id": 42, "entity_type": "deal", "entity_id": "15", "field_code": "UF_CRM_FILES", "field_multiple": true},
		"event_token": "evt"
	}`
	r := httptest.NewRequest("POST", "/robots/task-result", strings.NewReader(body))

	req, err := ParseRobotRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Auth.AccessToken != "tok" || req.Auth.Domain != "portal.bitrix24.ru" {
		t.Errorf("unexpected auth %+v", req.Auth)
	}
	if req.EventToken != "evt" {
		t.Errorf("expected event token, got %q", req.EventToken)
	}
	if req.Properties["task_id"] != "42" || req.Properties["entity_id"] != "15" {
		t.Errorf("unexpected properties %v", req.Properties)
	}
	if !req.Properties.Flag("field_multiple") {
		t.Error("expected field_multiple flag")
	}
}

func TestParseRobotRequest_FormFallback(t *testing.T) {
	body := "auth%5Baccess_token%5D=tok&auth%5Bdomain%5D=portal.bitrix24.ru" +
		"&properties%5Btask_id%5D=42&properties%5Bfield_code%5D=UF_CRM_1" +
		"&event_token=evt&document_id%5B0%5D=crm&code=task_result"
	r := httptest.NewRequest("POST", "/robots/task-result", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req, err := ParseRobotRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Auth.AccessToken != "tok" || req.Auth.Domain != "portal.bitrix24.ru" {
		t.Errorf("unexpected auth %+v", req.Auth)
	}
	if req.Properties["task_id"] != "42" || req.Properties["field_code"] != "UF_CRM_1" {
		t.Errorf("unexpected properties %v", req.Properties)
	}
	if req.EventToken != "evt" || req.Code != "task_result" {
		t.Errorf("unexpected event token/code: %q %q", req.EventToken, req.Code)
	}
}

func TestParseRobotRequest_Empty(t *testing.T) {
	r := httptest.NewRequest("POST", "/robots/task-result", strings.NewReader(""))

	if _, err := ParseRobotRequest(r); !errors.Is(err, errMalformedBody) {
		t.Errorf("expected errMalformedBody, got %v", err)
	}
}

func TestProperties_Int(t *testing.T) {
	props := Properties{"a": "42", "b": "42.0", "c": "abc", "d": ""}

	if n, ok, err := props.Int("a"); n != 42 || !ok || err != nil {
		t.Errorf("a: got %d %v %v", n, ok, err)
	}
	if n, ok, err := props.Int("b"); n != 42 || !ok || err != nil {
		t.Errorf("b: got %d %v %v", n, ok, err)
	}
	if _, ok, err := props.Int("c"); !ok || err == nil {
		t.Errorf("c: expected error, got %v %v", ok, err)
	}
	if _, ok, _ := props.Int("d", "missing"); ok {
		t.Error("d: expected missing")
	}
}

func TestPipelineRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mode    robot.Mode
		auth    domain.Auth
		props   Properties
		missing []string
		invalid []string
	}{
		{
			name:    "everything missing",
			mode:    robot.ModeResolve,
			props:   Properties{},
			missing: []string{"access_token", "domain", "task_id"},
		},
		{
			name:    "attach fields missing",
			mode:    robot.ModeAttach,
			auth:    domain.Auth{AccessToken: "t", Domain: "d"},
			props:   Properties{"task_id": "1"},
			missing: []string{"entity_type", "entity_id", "field_code"},
		},
		{
			name:    "smart process without type",
			mode:    robot.ModeAttachDetect,
			auth:    domain.Auth{AccessToken: "t", Domain: "d"},
			props:   Properties{"task_id": "1", "entity_type": "smart_process", "entity_id": "5", "field_code": "UF_CRM_1"},
			missing: []string{"smart_process_id"},
		},
		{
			name:    "bad values",
			mode:    robot.ModeAttach,
			auth:    domain.Auth{AccessToken: "t", Domain: "d"},
			props:   Properties{"task_id": "x", "entity_type": "order", "entity_id": "-1", "field_code": "F"},
			invalid: []string{"task_id", "entity_type", "entity_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pipelineRequest(tt.mode, &RobotRequest{Auth: tt.auth, Properties: tt.props})

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if strings.Join(verr.Missing, ",") != strings.Join(tt.missing, ",") {
				t.Errorf("expected missing %v, got %v", tt.missing, verr.Missing)
			}
			if strings.Join(verr.Invalid, ",") != strings.Join(tt.invalid, ",") {
				t.Errorf("expected invalid %v, got %v", tt.invalid, verr.Invalid)
			}
		})
	}
}

func TestPipelineRequest_SmartProcessTarget(t *testing.T) {
	req := &RobotRequest{
		Auth: domain.Auth{AccessToken: "t", Domain: "d"},
		Properties: Properties{
			"task_id":          "42",
			"entity_type":      "smart_process",
			"entity_id":        "9",
			"field_code":       "UF_CRM_1758796871250",
			"smart_process_id": "1040",
			"field_multiple":   "Y",
		},
	}

	params, err := pipelineRequest(robot.ModeAttach, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Target == nil || params.Target.FieldCode != "ufCrm_1758796871250" || params.Target.SmartProcessTypeID != 1040 {
		t.Errorf("unexpected target %+v", params.Target)
	}
	if !params.FieldMultiple {
		t.Error("expected field_multiple")
	}
}

func TestContactRequest_LegacyNames(t *testing.T) {
	req := &RobotRequest{
		Auth:       domain.Auth{AccessToken: "t", Domain: "d"},
		Properties: Properties{"ID": "12", "Phone": "+7 999 123-45-67", "entity_type": "deal"},
	}

	params, err := contactRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.EntityID != 12 || params.Phone != "+7 999 123-45-67" || params.Kind != domain.EntityDeal {
		t.Errorf("unexpected params %+v", params)
	}

	req.Properties["entity_type"] = "company"
	if _, err := contactRequest(req); !IsValidationError(err) {
		t.Errorf("expected validation error for company, got %v", err)
	}
}
