package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FileID — непрозрачный идентификатор файла на портале.
//
// Портал отдаёт идентификаторы то числом, то строкой, поэтому
// UnmarshalJSON принимает оба варианта.
type FileID string

// UnmarshalJSON принимает число или строку.
func (id *FileID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FileID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("file id: %w", err)
	}
	*id = FileID(n.String())
	return nil
}

// String возвращает идентификатор строкой.
func (id FileID) String() string {
	return string(id)
}

// Int возвращает числовое значение идентификатора, если оно есть.
func (id FileID) Int() (int, bool) {
	n, err := strconv.Atoi(string(id))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Provenance — происхождение идентификатора файла.
type Provenance string

const (
	// ProvenanceDeclared — идентификатор взят из поля files результата задачи.
	ProvenanceDeclared Provenance = "declared"

	// ProvenanceComment — идентификатор получен из вложений комментария результата.
	ProvenanceComment Provenance = "comment"
)

// FileRef — ссылка на файл результата вместе с её происхождением.
type FileRef struct {
	ID         FileID     `json:"id"`
	Provenance Provenance `json:"provenance"`
}

// Declared создаёт ссылки с происхождением ProvenanceDeclared.
func Declared(ids []FileID) []FileRef {
	return refs(ids, ProvenanceDeclared)
}

// Reconciled создаёт ссылки с происхождением ProvenanceComment.
func Reconciled(ids []FileID) []FileRef {
	return refs(ids, ProvenanceComment)
}

func refs(ids []FileID, p Provenance) []FileRef {
	out := make([]FileRef, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		out = append(out, FileRef{ID: id, Provenance: p})
	}
	return out
}

// IDs возвращает идентификаторы ссылок в исходном порядке.
func IDs(files []FileRef) []FileID {
	ids := make([]FileID, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	return ids
}

// JoinIDs склеивает идентификаторы через запятую (формат return_values).
func JoinIDs(ids []FileID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

// FileContent — скачанный файл.
type FileContent struct {
	ID   FileID
	Name string
	Data []byte
}

// Size возвращает размер содержимого в байтах.
func (f FileContent) Size() int {
	return len(f.Data)
}
