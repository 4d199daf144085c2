package bitrix

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shaiso/b24robots/internal/domain"
	"github.com/shaiso/b24robots/internal/telemetry"
)

// Значения по умолчанию.
const (
	defaultCallTimeout     = 30 * time.Second
	defaultTransferTimeout = 5 * time.Minute
	maxResponseBody        = 10 * 1024 * 1024  // 10 MB
	maxTransferBody        = 256 * 1024 * 1024 // 256 MB
)

// Config — конфигурация клиента.
type Config struct {
	// CallTimeout — таймаут вызова REST метода (default: 30s).
	CallTimeout time.Duration

	// TransferTimeout — таймаут скачивания/загрузки файла (default: 5m).
	TransferTimeout time.Duration

	// RateLimit — ограничение запросов в секунду к одному порталу. 0 — без ограничения.
	RateLimit float64

	// RateBurst — размер burst для RateLimit (default: 1).
	RateBurst int

	// InsecureTLS отключает проверку сертификата портала.
	InsecureTLS bool

	// Transport позволяет подменить транспорт (для тестов).
	Transport http.RoundTripper
}

// Client — общий для всех вызовов клиент портала.
//
// Хранит HTTP клиенты и rate limiter, безопасен для конкурентного
// использования. Авторизация привязывается через Session.
type Client struct {
	callClient     *http.Client
	transferClient *http.Client

	// Лимит считается отдельно для каждого портала (host -> *rate.Limiter).
	limit    rate.Limit
	burst    int
	limiters sync.Map
}

// NewClient создаёт клиент.
func NewClient(cfg Config) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.TransferTimeout <= 0 {
		cfg.TransferTimeout = defaultTransferTimeout
	}

	transport := cfg.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureTLS {
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		transport = t
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		callClient:     &http.Client{Timeout: cfg.CallTimeout, Transport: transport},
		transferClient: &http.Client{Timeout: cfg.TransferTimeout, Transport: transport},
		limit:          rate.Limit(cfg.RateLimit),
		burst:          burst,
	}
}

// Session возвращает сессию, привязанную к авторизации вызова.
func (c *Client) Session(auth domain.Auth) *Session {
	return &Session{client: c, auth: auth}
}

// Session — клиент в контексте одного вызова робота.
type Session struct {
	client *Client
	auth   domain.Auth
}

// Auth возвращает авторизацию сессии.
func (s *Session) Auth() domain.Auth {
	return s.auth
}

// Call вызывает REST метод.
//
// Параметры уходят JSON-телом POST запроса, токен — параметром auth.
// Ровно одна попытка.
func (s *Session) Call(ctx context.Context, method string, params map[string]any) (*Response, error) {
	start := time.Now()
	resp, err := s.call(ctx, method, params)
	telemetry.ObservePlatformCall(method, err, time.Since(start))
	return resp, err
}

func (s *Session) call(ctx context.Context, method string, params map[string]any) (*Response, error) {
	if err := s.client.wait(ctx, s.auth.Host()); err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Err: err}
	}

	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Err: fmt.Errorf("marshal params: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Err: fmt.Errorf("create request: %w", redact(err))}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := s.client.callClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Err: redact(err)}
	}
	defer httpResp.Body.Close()

	return decodeResponse(method, httpResp)
}

// methodURL строит https://{domain}/rest/{method}?auth={token}.
func (s *Session) methodURL(method string) string {
	q := url.Values{}
	q.Set("auth", s.auth.AccessToken)
	return "https://" + s.auth.Host() + "/rest/" + method + "?" + q.Encode()
}

// limiter возвращает limiter портала host или nil, если лимит не настроен.
func (c *Client) limiter(host string) *rate.Limiter {
	if c.limit <= 0 {
		return nil
	}
	host = strings.ToLower(host)
	if l, ok := c.limiters.Load(host); ok {
		return l.(*rate.Limiter)
	}
	l, _ := c.limiters.LoadOrStore(host, rate.NewLimiter(c.limit, c.burst))
	return l.(*rate.Limiter)
}

// wait ждёт limiter портала host.
func (c *Client) wait(ctx context.Context, host string) error {
	limiter := c.limiter(host)
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// decodeResponse разбирает конверт ответа.
func decodeResponse(method string, httpResp *http.Response) (*Response, error) {
	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, StatusCode: httpResp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	var resp Response
	decodeErr := json.Unmarshal(raw, &resp)

	// Ошибка портала приходит с 4xx/5xx и JSON телом
	if decodeErr == nil && resp.Error != "" {
		return nil, &Error{
			Kind:        KindRemote,
			Method:      method,
			StatusCode:  httpResp.StatusCode,
			Code:        resp.Error,
			Description: resp.ErrorDescription,
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &Error{
			Kind:       KindTransport,
			Method:     method,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", truncate(string(raw), 200)),
		}
	}

	if decodeErr != nil {
		return nil, &Error{Kind: KindDecode, Method: method, StatusCode: httpResp.StatusCode, Err: decodeErr}
	}

	return &resp, nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
