package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/shaiso/b24robots/internal/bitrix"
)

// ErrMissingAuth — не заданы домен или токен портала.
var ErrMissingAuth = errors.New("portal domain and access token required (--domain/--token or B24_DOMAIN/B24_ACCESS_TOKEN)")

// Caller — вызов REST метода портала (*bitrix.Session).
type Caller interface {
	Call(ctx context.Context, method string, params map[string]any) (*bitrix.Response, error)
}

// Portal регистрирует роботов на портале.
type Portal struct {
	api Caller
}

// NewPortal создаёт Portal.
func NewPortal(api Caller) *Portal {
	return &Portal{api: api}
}

// Installed возвращает коды установленных роботов приложения.
func (p *Portal) Installed(ctx context.Context) ([]string, error) {
	resp, err := p.api.Call(ctx, "bizproc.robot.list", nil)
	if err != nil {
		return nil, err
	}

	var codes []string
	if resp.HasResult() {
		if err := resp.Decode(&codes); err != nil {
			return nil, fmt.Errorf("decode robot list: %w", err)
		}
	}
	slices.Sort(codes)
	return codes, nil
}

// Install регистрирует робота. При force уже установленный робот
// сначала удаляется.
func (p *Portal) Install(ctx context.Context, m *Manifest, r RobotSpec, force bool) error {
	if force {
		installed, err := p.Installed(ctx)
		if err != nil {
			return err
		}
		if slices.Contains(installed, r.Code) {
			if err := p.Uninstall(ctx, r.Code); err != nil {
				return err
			}
		}
	}

	if _, err := p.api.Call(ctx, "bizproc.robot.add", m.AddParams(r)); err != nil {
		return fmt.Errorf("install %s: %w", r.Code, err)
	}
	return nil
}

// Uninstall удаляет робота по коду.
func (p *Portal) Uninstall(ctx context.Context, code string) error {
	if _, err := p.api.Call(ctx, "bizproc.robot.delete", map[string]any{"CODE": code}); err != nil {
		return fmt.Errorf("uninstall %s: %w", code, err)
	}
	return nil
}

// InvokeRequest — тело вызова робота, как его отправляет портал.
type InvokeRequest struct {
	Auth       InvokeAuth        `json:"auth"`
	Properties map[string]string `json:"properties"`
	EventToken string            `json:"event_token,omitempty"`
	Code       string            `json:"code,omitempty"`
}

// InvokeAuth — авторизация в теле вызова.
type InvokeAuth struct {
	AccessToken string `json:"access_token"`
	Domain      string `json:"domain"`
}

// InvokeResult — ответ robots-api.
type InvokeResult struct {
	StatusCode int
	Body       map[string]any
}

// Invoker вызывает роботов на локальном robots-api, имитируя портал.
type Invoker struct {
	baseURL    string
	httpClient *http.Client
}

// NewInvoker создаёт Invoker.
func NewInvoker(baseURL string) *Invoker {
	return &Invoker{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Загрузка файлов может идти минутами
			Timeout: 10 * time.Minute,
		},
	}
}

// Invoke отправляет вызов на path. Ответ с любым HTTP статусом
// возвращается без ошибки, если тело удалось разобрать.
func (c *Invoker) Invoke(ctx context.Context, path string, body InvokeRequest) (*InvokeResult, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	result := &InvokeResult{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(raw, &result.Body); err != nil {
		return nil, fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}
	return result, nil
}
