package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shaiso/b24robots/internal/bitrix"
	"github.com/shaiso/b24robots/internal/domain"
	"github.com/shaiso/b24robots/internal/telemetry"
)

// fakePortal — портал на httptest с ответами по имени метода.
type fakePortal struct {
	mu      sync.Mutex
	server  *httptest.Server
	results map[string]string
	calls   []string
	bodies  map[string][]map[string]any
}

func newFakePortal(t *testing.T) *fakePortal {
	t.Helper()
	p := &fakePortal{
		results: make(map[string]string),
		bodies:  make(map[string][]map[string]any),
	}
	p.server = httptest.NewTLSServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) serve(w http.ResponseWriter, r *http.Request) {
	if id, found := strings.CutPrefix(r.URL.Path, "/download/"); found {
		w.Write([]byte("content of " + id))
		return
	}
	method := strings.TrimPrefix(r.URL.Path, "/rest/")

	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)

	p.mu.Lock()
	p.calls = append(p.calls, method)
	p.bodies[method] = append(p.bodies[method], body)
	result, found := p.results[method]
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !found {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `{"error": "ERROR_NOT_FOUND", "error_description": "%s not configured"}`, method)
		return
	}
	fmt.Fprintf(w, `{"result": %s}`, result)
}

func (p *fakePortal) domain() string {
	return p.server.Listener.Addr().String()
}

func (p *fakePortal) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// recorder собирает записи журнала и события.
type recorder struct {
	mu      sync.Mutex
	records []*domain.InvocationRecord
	events  []*domain.InvocationRecord
	ctxErrs []error
}

func (r *recorder) Record(ctx context.Context, rec *domain.InvocationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return nil
}

func (r *recorder) PublishInvocationCompleted(ctx context.Context, rec *domain.InvocationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, rec)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return nil
}

func newTestServer(t *testing.T, portal *fakePortal) (*http.ServeMux, *recorder) {
	t.Helper()
	rec := &recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := NewHandler(Config{
		Client:    bitrix.NewClient(bitrix.Config{Transport: portal.server.Client().Transport}),
		Journal:   rec,
		Publisher: rec,
		Logger:    logger,
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux, rec
}

func doRobot(mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func robotBody(domain, props string) string {
	return fmt.Sprintf(`{"auth": {"access_token": "tok", "domain": %q}, "properties": %s, "event_token": "evt"}`, domain, props)
}

func TestRobots_MissingFieldsMakeNoRemoteCalls(t *testing.T) {
	portal := newFakePortal(t)
	mux, rec := newTestServer(t, portal)

	tests := []struct {
		path string
		body string
		want string
	}{
		{"/robots/task-result", `{"auth": {"domain": "x"}, "properties": {}}`, "access_token"},
		{"/robots/task-result", robotBody(portal.domain(), `{}`), "task_id"},
		{"/robots/task-files/relocate", `auth%5Bdomain%5D=x`, "access_token"},
		{"/robots/task-files/attach", robotBody(portal.domain(), `{"task_id": 1}`), "entity_type"},
		{"/robots/task-files/attach-detect", robotBody(portal.domain(), `{"task_id": 1, "entity_type": "deal", "entity_id": 2}`), "field_code"},
		{"/robots/contact/attach", robotBody(portal.domain(), `{"ID": 1}`), "phone"},
		{"/robots/task-result", ``, "malformed"},
	}

	for _, tt := range tests {
		w := doRobot(mux, tt.path, tt.body)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s: expected 400, got %d", tt.path, tt.body, w.Code)
			continue
		}

		var resp ErrorResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if !strings.Contains(resp.Error, tt.want) {
			t.Errorf("%s: expected error mentioning %q, got %q", tt.path, tt.want, resp.Error)
		}
	}

	if n := portal.callCount(); n != 0 {
		t.Errorf("expected no remote calls, got %d", n)
	}
	if len(rec.records) != 0 {
		t.Errorf("invalid calls must not be journaled, got %d", len(rec.records))
	}
}

func TestRobots_TaskResult(t *testing.T) {
	portal := newFakePortal(t)
	portal.results["tasks.task.get"] = `{"task": {"id": "42", "description": "desc"}}`
	portal.results["tasks.task.result.list"] = `[{"text": "done", "files": [4925], "commentId": 5}]`
	portal.results["task.commentitem.get"] = `{"ATTACHED_OBJECTS": {"1": {"FILE_ID": 7001}, "2": {"FILE_ID": 7002}}}`
	portal.results["bizproc.event.send"] = `true`
	mux, rec := newTestServer(t, portal)

	w := doRobot(mux, "/robots/task-result", robotBody(portal.domain(), `{"task_id": "42"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp RobotResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.FilesCount != 2 || strings.Join(resp.FilesIDs, ",") != "7001,7002" || resp.TextResult != "done" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Callback != "sent" || resp.InvocationID == "" {
		t.Errorf("unexpected callback/invocation %+v", resp)
	}

	send := portal.bodies["bizproc.event.send"]
	if len(send) != 1 {
		t.Fatalf("expected 1 callback, got %d", len(send))
	}
	values := send[0]["return_values"].(map[string]any)
	if values["files"] != "7001,7002" || values["text"] != "done" {
		t.Errorf("unexpected return values %v", values)
	}

	if len(rec.records) != 1 || len(rec.events) != 1 {
		t.Fatalf("expected journal record and event, got %d/%d", len(rec.records), len(rec.events))
	}
	r := rec.records[0]
	if r.Robot != RobotTaskResult || r.TaskID != 42 || r.StatusCode != http.StatusOK || !r.Success {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestRobots_TaskNotFound(t *testing.T) {
	portal := newFakePortal(t)
	portal.results["bizproc.event.send"] = `true`
	// tasks.task.get не настроен — портал отвечает 400 с ошибкой
	mux, rec := newTestServer(t, portal)

	w := doRobot(mux, "/robots/task-result", robotBody(portal.domain(), `{"task_id": 404}`))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}

	if len(portal.bodies["bizproc.event.send"]) != 1 {
		t.Error("expected empty callback to be sent")
	}
	if len(rec.records) != 1 || rec.records[0].StatusCode != http.StatusNotFound {
		t.Errorf("unexpected records %+v", rec.records)
	}
}

func TestRobots_AttachDetectSmartProcess(t *testing.T) {
	portal := newFakePortal(t)
	portal.results["tasks.task.get"] = `{"task": {"id": "42"}}`
	portal.results["tasks.task.result.list"] = `[{"text": "", "files": [7001]}]`
	portal.results["disk.file.get"] = fmt.Sprintf(`{"ID": 7001, "NAME": "a.txt", "DOWNLOAD_URL": "https://%s/download/7001"}`, portal.domain())
	portal.results["crm.item.fields"] = `{"fields": {"ufCrm_1758796871250": {"isMultiple": "N"}}}`
	portal.results["crm.item.update"] = `{"item": {"id": 9}}`
	mux, _ := newTestServer(t, portal)

	body := robotBody(portal.domain(), `{
		"task_id": 42, "entity_type": "smart_process", "entity_id": 9,
		"field_code": "UF_CRM_1758796871250", "smart_process_id": 1040
	}`)
	w := doRobot(mux, "/robots/task-files/attach-detect", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp RobotResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Success || !resp.EntityUpdated {
		t.Fatalf("expected entity update, got %+v", resp)
	}

	updates := portal.bodies["crm.item.update"]
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	fields := updates[0]["fields"].(map[string]any)
	value, ok := fields["ufCrm_1758796871250"].(map[string]any)
	if !ok {
		t.Fatalf("expected fileData object, got %#v", fields)
	}
	if pair := value["fileData"].([]any); pair[0] != "a.txt" {
		t.Errorf("unexpected fileData %v", pair)
	}
	if updates[0]["entityTypeId"] != float64(1040) {
		t.Errorf("unexpected entityTypeId %v", updates[0]["entityTypeId"])
	}
}

func TestRobots_AttachUpdateFailure(t *testing.T) {
	portal := newFakePortal(t)
	portal.results["tasks.task.get"] = `{"task": {"id": "42"}}`
	portal.results["tasks.task.result.list"] = `[{"text": "", "files": [7001]}]`
	portal.results["disk.file.get"] = `{"ID": 7001, "NAME": "a.txt"}`
	mux, _ := newTestServer(t, portal)

	body := robotBody(portal.domain(), `{"task_id": 42, "entity_type": "lead", "entity_id": 3, "field_code": "UF_CRM_FILE"}`)
	w := doRobot(mux, "/robots/task-files/attach", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp RobotResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Success || resp.EntityUpdated || resp.Message == "" {
		t.Errorf("expected success=false with message, got %+v", resp)
	}
}

func TestRobots_ContactAttach(t *testing.T) {
	portal := newFakePortal(t)
	portal.results["crm.contact.list"] = `[{"ID": "31", "PHONE": [{"VALUE": "+7 999 123-45-67"}]}]`
	portal.results["crm.deal.update"] = `true`
	portal.results["bizproc.event.send"] = `true`
	mux, _ := newTestServer(t, portal)

	body := robotBody(portal.domain(), `{"ID": 12, "Phone": "8 (999) 123-45-67", "entity_type": "deal"}`)
	w := doRobot(mux, "/robots/contact/attach", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ContactResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Success || resp.ContactID != "31" || resp.EntityID != 12 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestRobots_ContactNotFound(t *testing.T) {
	portal := newFakePortal(t)
	portal.results["crm.contact.list"] = `[]`
	mux, _ := newTestServer(t, portal)

	body := robotBody(portal.domain(), `{"entity_id": 12, "phone": "+7 999 123-45-67", "entity_type": "lead"}`)
	w := doRobot(mux, "/robots/contact/attach", body)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Chain(Recovery(logger), Logging(logger))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/robots/task-result", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var fromCtx *slog.Logger
	h := RequestID(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = telemetry.FromContext(r.Context())
	}))

	// Входящий идентификатор сохраняется
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/robots/task-result", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	h.ServeHTTP(w, req)

	if got := w.Header().Get(HeaderRequestID); got != "req-1" {
		t.Errorf("expected req-1, got %q", got)
	}
	if fromCtx == nil || fromCtx == logger {
		t.Error("expected request-scoped logger in context")
	}

	// Без заголовка генерируется новый
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/robots/task-result", nil))
	if w.Header().Get(HeaderRequestID) == "" {
		t.Error("expected generated request id")
	}
}

func TestComplete_SurvivesCancelledRequest(t *testing.T) {
	rec := &recorder{}
	h := NewHandler(Config{
		Journal:   rec,
		Publisher: rec,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	// Портал закрыл соединение до записи итога
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.complete(ctx, &domain.InvocationRecord{Robot: RobotTaskResult})

	if len(rec.records) != 1 || len(rec.events) != 1 {
		t.Fatalf("expected record and event, got %d/%d", len(rec.records), len(rec.events))
	}
	for _, err := range rec.ctxErrs {
		if err != nil {
			t.Errorf("journal/publisher got cancelled context: %v", err)
		}
	}
}
