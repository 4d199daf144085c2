package robot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shaiso/b24robots/internal/domain"
	"github.com/shaiso/b24robots/internal/telemetry"
)

// minPhoneDigits — короче этого номер не ищется.
const minPhoneDigits = 7

// suffixSearchDigits — с какой длины номера включается поиск по последним цифрам.
const suffixSearchDigits = 10

var nonDigits = regexp.MustCompile(`\D`)

// ContactRequest — параметры робота привязки контакта.
type ContactRequest struct {
	Kind     domain.EntityKind
	EntityID int
	Phone    string
}

// ContactOutcome — итог работы робота привязки контакта.
type ContactOutcome struct {
	Success   bool
	Message   string
	ContactID string
	Callback  ReportStatus
}

// phoneValue — элемент множественного поля PHONE.
type phoneValue struct {
	Value     string `json:"VALUE"`
	ValueType string `json:"VALUE_TYPE"`
}

// contactRecord — элемент crm.contact.list.
type contactRecord struct {
	ID       flexString              `json:"ID"`
	Name     string                  `json:"NAME"`
	LastName string                  `json:"LAST_NAME"`
	Phone    orderedList[phoneValue] `json:"PHONE"`
}

// phoneSearch — одна попытка поиска: значение фильтра и способ сравнения.
type phoneSearch struct {
	strategy string
	filter   string
	match    func(value string) bool
}

// ContactMatcher ищет контакт по телефону и привязывает его к лиду или сделке.
type ContactMatcher struct {
	logger *slog.Logger
}

// NewContactMatcher создаёт ContactMatcher.
func NewContactMatcher(logger *slog.Logger) *ContactMatcher {
	return &ContactMatcher{logger: logger}
}

// NormalizePhone оставляет в номере только цифры.
func NormalizePhone(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// AttachContact находит контакт по телефону и записывает его в CONTACT_ID сущности.
//
// Возвращает ErrContactNotFound, если контакт не найден, и ErrUpdateRejected,
// если портал не подтвердил обновление. Результат отправляется бизнес-процессу
// в любом случае.
func (m *ContactMatcher) AttachContact(ctx context.Context, api API, inv *domain.Invocation, req ContactRequest) (*ContactOutcome, error) {
	logger := telemetry.WithInvocationID(m.logger, inv.ID.String()).With(
		"entity_type", string(req.Kind),
		"entity_id", req.EntityID,
	)
	reporter := NewReporter(api, inv, logger)

	method, err := contactUpdateMethod(req.Kind)
	if err != nil {
		return nil, err
	}

	contactID := m.findContact(ctx, api, req.Phone, logger)
	if contactID == "" {
		logger.Info("contact not found", "phone", req.Phone)
		out := &ContactOutcome{Message: "contact not found"}
		out.Callback = reporter.Report(ctx, domain.CallbackResult{
			Message: out.Message,
			Extra:   map[string]string{"phone": req.Phone},
		})
		return out, fmt.Errorf("%w: %s", ErrContactNotFound, req.Phone)
	}

	resp, err := api.Call(ctx, method, map[string]any{
		"id":     req.EntityID,
		"fields": map[string]any{"CONTACT_ID": contactID},
	})
	if err == nil && !isTrueResult(resp.Result) {
		err = fmt.Errorf("%w: %s returned %s", ErrUpdateRejected, method, string(resp.Result))
	}
	if err != nil {
		logger.Error("contact binding failed", "contact_id", contactID, "error", err)
		out := &ContactOutcome{ContactID: contactID, Message: "entity update failed"}
		out.Callback = reporter.Report(ctx, domain.CallbackResult{
			Message: out.Message,
			Extra:   map[string]string{"contact_id": contactID},
		})
		return out, err
	}

	logger.Info("contact attached", "contact_id", contactID)

	out := &ContactOutcome{
		Success:   true,
		ContactID: contactID,
		Message:   "contact attached",
	}
	out.Callback = reporter.Report(ctx, domain.CallbackResult{
		Success: true,
		Message: out.Message,
		Extra:   map[string]string{"contact_id": contactID},
	})
	return out, nil
}

// findContact последовательно пробует поиск по цифрам номера,
// по исходной строке и по последним семи цифрам.
func (m *ContactMatcher) findContact(ctx context.Context, api API, phone string, logger *slog.Logger) string {
	digits := NormalizePhone(phone)
	if len(digits) < minPhoneDigits {
		logger.Info("phone number too short", "phone", phone)
		return ""
	}

	searches := []phoneSearch{
		{
			strategy: "normalized",
			filter:   digits,
			match:    func(v string) bool { return NormalizePhone(v) == digits },
		},
		{
			strategy: "original",
			filter:   phone,
			match:    func(v string) bool { return v == phone },
		},
	}
	if len(digits) >= suffixSearchDigits {
		suffix := digits[len(digits)-minPhoneDigits:]
		searches = append(searches, phoneSearch{
			strategy: "suffix",
			filter:   suffix,
			match:    func(v string) bool { return strings.HasSuffix(NormalizePhone(v), suffix) },
		})
	}

	for _, s := range searches {
		id, err := m.search(ctx, api, s)
		if err != nil {
			logger.Warn("contact search failed", "strategy", s.strategy, "error", err)
			continue
		}
		if id != "" {
			logger.Debug("contact found", "strategy", s.strategy, "contact_id", id)
			return id
		}
	}
	return ""
}

func (m *ContactMatcher) search(ctx context.Context, api API, s phoneSearch) (string, error) {
	resp, err := api.Call(ctx, "crm.contact.list", map[string]any{
		"filter": map[string]any{"PHONE": s.filter},
		"select": []string{"ID", "PHONE", "NAME", "LAST_NAME"},
	})
	if err != nil {
		return "", err
	}
	if !resp.HasResult() {
		return "", nil
	}

	var contacts orderedList[contactRecord]
	if err := resp.Decode(&contacts); err != nil {
		return "", fmt.Errorf("decode contacts: %w", err)
	}

	for _, c := range contacts {
		for _, p := range c.Phone {
			if s.match(p.Value) {
				return string(c.ID), nil
			}
		}
	}
	return "", nil
}

func contactUpdateMethod(kind domain.EntityKind) (string, error) {
	switch kind {
	case domain.EntityLead:
		return "crm.lead.update", nil
	case domain.EntityDeal:
		return "crm.deal.update", nil
	default:
		return "", fmt.Errorf("%w: contact binding supports lead and deal, got %q", domain.ErrUnknownEntityKind, kind)
	}
}

// isTrueResult — result равен true.
func isTrueResult(raw []byte) bool {
	return strings.TrimSpace(string(raw)) == "true"
}
