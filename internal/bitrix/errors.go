package bitrix

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrorKind — вид ошибки вызова.
type ErrorKind string

const (
	// KindTransport — сеть, таймаут или не-2xx ответ без тела ошибки портала.
	KindTransport ErrorKind = "transport"

	// KindDecode — тело ответа не является ожидаемым JSON.
	KindDecode ErrorKind = "decode"

	// KindRemote — портал ответил ошибкой ({"error": "...", "error_description": "..."}).
	KindRemote ErrorKind = "remote"
)

// Error — ошибка вызова REST метода.
type Error struct {
	Kind        ErrorKind
	Method      string
	StatusCode  int
	Code        string
	Description string
	Err         error
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	msg := fmt.Sprintf("bitrix %s: %s", e.Method, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Code != "" {
		msg += ": " + e.Code
		if e.Description != "" {
			msg += ": " + e.Description
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap возвращает исходную ошибку.
func (e *Error) Unwrap() error {
	return e.Err
}

// AsError извлекает *Error из цепочки.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRemote проверяет, что портал явно ответил ошибкой.
func IsRemote(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindRemote
}

// redactedAuth — значение, которым заменяется токен в URL ошибок.
const redactedAuth = "REDACTED"

// redact убирает токен из URL, который net/http кладёт в *url.Error.
func redact(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	return &url.Error{Op: ue.Op, URL: redactURL(ue.URL), Err: ue.Err}
}

// redactURL заменяет параметр auth. Неразборный URL обрезается до пути.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}

	q := u.Query()
	if q.Has("auth") {
		q.Set("auth", redactedAuth)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
