package bitrix

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaiso/b24robots/internal/telemetry"
)

// Псевдо-методы для метрик и ошибок передачи файлов.
const (
	methodDownload = "file.download"
	methodUpload   = "file.upload"
)

// Fetch скачивает файл по ссылке портала, следуя редиректам.
//
// Относительная ссылка дополняется доменом портала; если в ссылке нет
// параметра auth, он добавляется из сессии.
func (s *Session) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()
	data, err := s.fetch(ctx, rawURL)
	telemetry.ObservePlatformCall(methodDownload, err, time.Since(start))
	return data, err
}

func (s *Session) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := s.authorize(rawURL)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: methodDownload, Err: err}
	}

	if err := s.client.wait(ctx, s.auth.Host()); err != nil {
		return nil, &Error{Kind: KindTransport, Method: methodDownload, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: methodDownload, Err: fmt.Errorf("create request: %w", redact(err))}
	}

	resp, err := s.client.transferClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: methodDownload, Err: redact(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Kind:       KindTransport,
			Method:     methodDownload,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	// Читаем на байт больше лимита, чтобы отличить обрезанный файл
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTransferBody+1))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: methodDownload, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(data) > maxTransferBody {
		return nil, &Error{Kind: KindTransport, Method: methodDownload, Err: fmt.Errorf("file exceeds %d bytes", maxTransferBody)}
	}

	return data, nil
}

// Upload отправляет файл multipart-формой на адрес загрузки, выданный порталом.
//
// field — имя поля формы из ответа метода загрузки (обычно "file").
func (s *Session) Upload(ctx context.Context, uploadURL, field, name string, data []byte) (*Response, error) {
	start := time.Now()
	resp, err := s.upload(ctx, uploadURL, field, name, data)
	telemetry.ObservePlatformCall(methodUpload, err, time.Since(start))
	return resp, err
}

func (s *Session) upload(ctx context.Context, uploadURL, field, name string, data []byte) (*Response, error) {
	if field == "" {
		field = "file"
	}

	target, err := s.absolute(uploadURL)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: methodUpload, Err: err}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: methodUpload, Err: fmt.Errorf("create form file: %w", err)}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &Error{Kind: KindTransport, Method: methodUpload, Err: fmt.Errorf("write form file: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return nil, &Error{Kind: KindTransport, Method: methodUpload, Err: fmt.Errorf("close form: %w", err)}
	}

	if err := s.client.wait(ctx, s.auth.Host()); err != nil {
		return nil, &Error{Kind: KindTransport, Method: methodUpload, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: methodUpload, Err: fmt.Errorf("create request: %w", redact(err))}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.transferClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: methodUpload, Err: redact(err)}
	}
	defer resp.Body.Close()

	return decodeResponse(methodUpload, resp)
}

// absolute дополняет относительную ссылку доменом портала.
func (s *Session) absolute(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("empty url")
	}
	if strings.HasPrefix(rawURL, "/") {
		rawURL = "https://" + s.auth.Host() + rawURL
	}
	if _, err := url.Parse(rawURL); err != nil {
		return "", fmt.Errorf("parse url: %w", redact(err))
	}
	return rawURL, nil
}

// authorize добавляет auth к ссылке скачивания, если его там нет.
// Токен уходит только на хост портала.
func (s *Session) authorize(rawURL string) (string, error) {
	abs, err := s.absolute(rawURL)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(abs)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", redact(err))
	}
	if !strings.EqualFold(u.Host, s.auth.Host()) {
		return abs, nil
	}

	q := u.Query()
	if q.Get("auth") == "" && s.auth.AccessToken != "" {
		q.Set("auth", s.auth.AccessToken)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
