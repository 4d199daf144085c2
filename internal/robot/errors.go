package robot

import (
	"errors"
	"fmt"
)

// Ошибки конвейера.
var (
	// ErrTaskNotFound — задача не найдена на портале.
	ErrTaskNotFound = errors.New("task not found")

	// ErrFileNotFound — портал не выдал ссылку на скачивание файла.
	ErrFileNotFound = errors.New("file not found")

	// ErrUploadRejected — портал не вернул ID загруженного файла.
	ErrUploadRejected = errors.New("upload rejected")

	// ErrNoStorage — на портале нет доступных хранилищ диска.
	ErrNoStorage = errors.New("no storage available")

	// ErrFieldNotFound — поля нет в схеме сущности.
	ErrFieldNotFound = errors.New("field not found")

	// ErrSchemaUnavailable — схему полей не удалось получить или разобрать.
	ErrSchemaUnavailable = errors.New("schema unavailable")

	// ErrNoFilesAvailable — не удалось скачать ни одного файла.
	ErrNoFilesAvailable = errors.New("no files available")

	// ErrUpdateRejected — портал не подтвердил обновление сущности.
	ErrUpdateRejected = errors.New("update rejected")

	// ErrContactNotFound — контакт с таким телефоном не найден.
	ErrContactNotFound = errors.New("contact not found")

	// ErrUnknownMode — неизвестный режим конвейера.
	ErrUnknownMode = errors.New("unknown pipeline mode")
)

// UpdateError — ошибка записи в сущность.
//
// Возвращается в теле ответа как success=false, а не как ошибка запроса.
type UpdateError struct {
	Err error
}

// Error реализует интерфейс error.
func (e *UpdateError) Error() string {
	return fmt.Sprintf("update entity: %v", e.Err)
}

// Unwrap возвращает исходную ошибку.
func (e *UpdateError) Unwrap() error {
	return e.Err
}

// IsUpdateError проверяет, что ошибка относится к записи в сущность.
func IsUpdateError(err error) bool {
	var ue *UpdateError
	return errors.As(err, &ue)
}
