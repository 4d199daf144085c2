package domain

import "errors"

// Ошибки доменной модели.
var (
	// ErrUnknownEntityKind — неизвестный тип сущности.
	ErrUnknownEntityKind = errors.New("unknown entity kind")

	// ErrSmartProcessTypeRequired — для смарт-процесса не передан entityTypeId.
	ErrSmartProcessTypeRequired = errors.New("smart process type id is required")
)
