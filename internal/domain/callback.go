package domain

import "strconv"

// CallbackResult — результат, отправляемый бизнес-процессу через event_token.
type CallbackResult struct {
	Success   bool
	FileCount int
	FileIDs   []FileID
	Text      string
	Message   string

	// Extra — дополнительные return_values конкретного робота.
	Extra map[string]string
}

// EmptyResult — пустой результат, чтобы бизнес-процесс не зависал при ошибке.
func EmptyResult(message string) CallbackResult {
	return CallbackResult{Success: false, Message: message}
}

// ReturnValues формирует return_values для bizproc.event.send.
func (r CallbackResult) ReturnValues() map[string]string {
	values := map[string]string{
		"success":     yn(r.Success),
		"files":       JoinIDs(r.FileIDs),
		"files_count": strconv.Itoa(r.FileCount),
		"text":        r.Text,
		"message":     r.Message,
	}
	for k, v := range r.Extra {
		values[k] = v
	}
	return values
}

func yn(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}
