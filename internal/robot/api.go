package robot

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/shaiso/b24robots/internal/bitrix"
	"github.com/shaiso/b24robots/internal/domain"
)

// API — вызовы портала, нужные конвейеру. Реализуется *bitrix.Session.
type API interface {
	Call(ctx context.Context, method string, params map[string]any) (*bitrix.Response, error)
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
	Upload(ctx context.Context, uploadURL, field, name string, data []byte) (*bitrix.Response, error)
}

// flexString — строка, которую портал может отдать числом.
type flexString string

// UnmarshalJSON принимает число, строку или null.
func (s *flexString) UnmarshalJSON(data []byte) error {
	var id domain.FileID
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	*s = flexString(id)
	return nil
}

// orderedList — коллекция, которую портал отдаёт то массивом, то объектом
// с ключами-идентификаторами. Порядок элементов сохраняется.
type orderedList[T any] []T

// UnmarshalJSON принимает массив, объект или пустое значение (null, false, "").
func (l *orderedList[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*l = nil
		return nil
	}

	switch data[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil

	case '{':
		dec := json.NewDecoder(bytes.NewReader(data))
		// Открывающая скобка объекта
		if _, err := dec.Token(); err != nil {
			return err
		}

		var items []T
		for dec.More() {
			// Ключ
			if _, err := dec.Token(); err != nil {
				return err
			}
			var item T
			if err := dec.Decode(&item); err != nil {
				return err
			}
			items = append(items, item)
		}
		*l = items
		return nil

	default:
		*l = nil
		return nil
	}
}
