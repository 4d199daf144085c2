package domain

import (
	"encoding/json"
	"strings"
)

// IsTruthy нормализует флаги портала: true, "Y" и 1 считаются истиной.
//
// Портал кодирует булевы флаги по-разному в зависимости от метода,
// поэтому все сравнения флагов идут через эту функцию.
func IsTruthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.TrimSpace(val) == "Y"
	case float64:
		return val == 1
	case int:
		return val == 1
	case int64:
		return val == 1
	case json.Number:
		n, err := val.Int64()
		return err == nil && n == 1
	default:
		return false
	}
}
