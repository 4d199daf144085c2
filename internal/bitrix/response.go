package bitrix

import (
	"bytes"
	"encoding/json"
	"errors"
)

// errEmptyResult — в ответе нет поля result.
var errEmptyResult = errors.New("empty result")

// Response — конверт ответа REST метода.
type Response struct {
	Result           json.RawMessage `json:"result"`
	Total            *int            `json:"total,omitempty"`
	Next             *int            `json:"next,omitempty"`
	Error            string          `json:"error,omitempty"`
	ErrorDescription string          `json:"error_description,omitempty"`
}

// HasResult возвращает true, если в ответе есть непустой result.
//
// result=false портал отдаёт, когда метод отработал, но ничего не сделал,
// поэтому false тоже считается отсутствием результата.
func (r *Response) HasResult() bool {
	raw := bytes.TrimSpace(r.Result)
	if len(raw) == 0 {
		return false
	}
	return !bytes.Equal(raw, []byte("null")) && !bytes.Equal(raw, []byte("false"))
}

// Decode разбирает result в v.
func (r *Response) Decode(v any) error {
	if len(r.Result) == 0 {
		return errEmptyResult
	}
	return json.Unmarshal(r.Result, v)
}
