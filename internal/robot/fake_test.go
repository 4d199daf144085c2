package robot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/shaiso/b24robots/internal/bitrix"
	"github.com/shaiso/b24robots/internal/domain"
)

// platformCall — зафиксированный вызов портала.
type platformCall struct {
	Method string
	Params map[string]any
}

// uploadCall — зафиксированная загрузка файла.
type uploadCall struct {
	URL   string
	Field string
	Name  string
	Data  []byte
}

// methodHandler отвечает на вызов метода.
type methodHandler func(params map[string]any) (*bitrix.Response, error)

// fakePlatform — API портала в памяти.
type fakePlatform struct {
	methods  map[string]methodHandler
	files    map[string][]byte
	uploadID int

	calls   []platformCall
	fetches []string
	uploads []uploadCall
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		methods:  make(map[string]methodHandler),
		files:    make(map[string][]byte),
		uploadID: 9000,
	}
}

// on регистрирует ответ метода.
func (f *fakePlatform) on(method string, h methodHandler) {
	f.methods[method] = h
}

// respond регистрирует фиксированный JSON result.
func (f *fakePlatform) respond(method, result string) {
	f.on(method, func(map[string]any) (*bitrix.Response, error) {
		return ok(result), nil
	})
}

// fail регистрирует ошибку портала.
func (f *fakePlatform) fail(method string, status int) {
	f.on(method, func(map[string]any) (*bitrix.Response, error) {
		return nil, &bitrix.Error{
			Kind:        bitrix.KindRemote,
			Method:      method,
			StatusCode:  status,
			Code:        "ERROR",
			Description: "failed",
		}
	})
}

// addFile регистрирует файл для disk.file.get и скачивания.
func (f *fakePlatform) addFile(id, name string, data []byte) {
	url := "https://portal.test/download/" + id
	f.files[url] = data

	prev := f.methods["disk.file.get"]
	f.on("disk.file.get", func(params map[string]any) (*bitrix.Response, error) {
		if params["id"] == id {
			return ok(fmt.Sprintf(`{"ID": %s, "NAME": %q, "DOWNLOAD_URL": %q}`, id, name, url)), nil
		}
		if prev != nil {
			return prev(params)
		}
		return ok(`{"ID": 0}`), nil
	})
}

func (f *fakePlatform) Call(_ context.Context, method string, params map[string]any) (*bitrix.Response, error) {
	f.calls = append(f.calls, platformCall{Method: method, Params: params})
	h, found := f.methods[method]
	if !found {
		return nil, &bitrix.Error{Kind: bitrix.KindRemote, Method: method, StatusCode: http.StatusBadRequest, Code: "ERROR_METHOD_NOT_FOUND"}
	}
	return h(params)
}

func (f *fakePlatform) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	f.fetches = append(f.fetches, rawURL)
	data, found := f.files[rawURL]
	if !found {
		return nil, &bitrix.Error{Kind: bitrix.KindTransport, Method: "file.download", StatusCode: http.StatusNotFound}
	}
	return data, nil
}

func (f *fakePlatform) Upload(_ context.Context, uploadURL, field, name string, data []byte) (*bitrix.Response, error) {
	f.uploads = append(f.uploads, uploadCall{URL: uploadURL, Field: field, Name: name, Data: data})
	f.uploadID++
	return ok(fmt.Sprintf(`{"ID": %d, "NAME": %q}`, f.uploadID, name)), nil
}

// callsOf возвращает вызовы метода.
func (f *fakePlatform) callsOf(method string) []platformCall {
	var out []platformCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func ok(result string) *bitrix.Response {
	return &bitrix.Response{Result: json.RawMessage(result)}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testInvocation(eventToken string) *domain.Invocation {
	return domain.NewInvocation("test", domain.Auth{AccessToken: "token", Domain: "portal.test"}, eventToken)
}

func fileIDs(ids ...string) []domain.FileID {
	out := make([]domain.FileID, len(ids))
	for i, id := range ids {
		out[i] = domain.FileID(id)
	}
	return out
}

func equalIDs(t *testing.T, got, want []domain.FileID) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected ids %v, got %v", want, got)
		}
	}
}
