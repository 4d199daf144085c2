package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shaiso/b24robots/internal/domain"
)

// maxRequestBody — ограничение тела входящего вызова.
const maxRequestBody = 1 << 20 // 1 MB

// errMalformedBody — тело не разбирается ни как JSON, ни как форма.
var errMalformedBody = errors.New("malformed request body")

// RobotRequest — входящий вызов робота от бизнес-процесса.
type RobotRequest struct {
	Auth       domain.Auth `json:"auth"`
	Properties Properties  `json:"properties"`
	EventToken string      `json:"event_token"`

	// Code — код робота, который портал передаёт вместе с вызовом.
	Code string `json:"code"`
}

// Properties — свойства робота, приведённые к строкам.
//
// Портал передаёт одни и те же свойства то числом, то строкой,
// поэтому значения хранятся строками и разбираются при чтении.
type Properties map[string]string

// UnmarshalJSON принимает объект со скалярными значениями.
// Вложенные массивы и объекты сохраняются исходным JSON.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	props := make(Properties, len(raw))
	for k, v := range raw {
		v = bytes.TrimSpace(v)
		switch {
		case len(v) == 0, bytes.Equal(v, []byte("null")):
			continue
		case v[0] == '"':
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("property %s: %w", k, err)
			}
			props[k] = s
		case bytes.Equal(v, []byte("true")):
			props[k] = "Y"
		case bytes.Equal(v, []byte("false")):
			props[k] = "N"
		default:
			props[k] = string(v)
		}
	}
	*p = props
	return nil
}

// Get возвращает первое непустое значение среди ключей.
func (p Properties) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(p[k]); v != "" {
			return v
		}
	}
	return ""
}

// Int разбирает целое свойство. ok=false, если свойства нет.
func (p Properties) Int(keys ...string) (n int, ok bool, err error) {
	v := p.Get(keys...)
	if v == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(v)
	if err != nil {
		// Числа вида "42.0" тоже встречаются
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, true, fmt.Errorf("not an integer: %q", v)
		}
		n = int(f)
	}
	return n, true, nil
}

// Flag возвращает значение флага (Y, true, 1).
func (p Properties) Flag(keys ...string) bool {
	v := p.Get(keys...)
	switch strings.ToLower(v) {
	case "y", "true", "1":
		return true
	default:
		return false
	}
}

// ParseRobotRequest разбирает тело вызова.
//
// Сначала тело читается как JSON, затем как форма в PHP-нотации
// (auth[access_token]=...&properties[task_id]=...).
func ParseRobotRequest(r *http.Request) (*RobotRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var req RobotRequest
	jsonErr := json.Unmarshal(body, &req)
	if jsonErr == nil {
		if req.Properties == nil {
			req.Properties = Properties{}
		}
		return &req, nil
	}

	form, err := parseBracketForm(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedBody, jsonErr)
	}
	return form, nil
}

// parseBracketForm разбирает форму с ключами вида group[key].
func parseBracketForm(body string) (*RobotRequest, error) {
	values, err := url.ParseQuery(strings.TrimSpace(body))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errMalformedBody
	}

	req := &RobotRequest{Properties: Properties{}}
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		val := vals[0]

		group, field := splitBracketKey(key)
		switch group {
		case "auth":
			switch field {
			case "access_token":
				req.Auth.AccessToken = val
			case "domain":
				req.Auth.Domain = val
			}
		case "properties":
			if field != "" {
				req.Properties[field] = val
			}
		case "event_token":
			req.EventToken = val
		case "code":
			req.Code = val
		}
	}
	return req, nil
}

// splitBracketKey: "auth[domain]" → ("auth", "domain"), "properties[a][0]" → ("properties", "a").
func splitBracketKey(key string) (group, field string) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, ""
	}
	group = key[:open]
	rest := key[open+1:]
	if end := strings.IndexByte(rest, ']'); end >= 0 {
		rest = rest[:end]
	}
	return group, rest
}
