package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Auth — авторизация портала, приходящая вместе с вызовом робота.
//
// Токен и домен действуют только в рамках одного вызова и нигде не сохраняются.
type Auth struct {
	// AccessToken — OAuth-токен приложения на портале.
	AccessToken string `json:"access_token"`

	// Domain — домен портала, например "company.bitrix24.ru".
	Domain string `json:"domain"`
}

// Host возвращает домен без схемы и завершающего слэша.
func (a Auth) Host() string {
	host := strings.TrimSpace(a.Domain)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/")
}

// Invocation — контекст одного вызова робота бизнес-процессом.
//
// Неизменяем на протяжении вызова и уничтожается вместе с HTTP-ответом.
type Invocation struct {
	// ID — идентификатор вызова (для логов, журнала и событий).
	ID uuid.UUID

	// Robot — код робота, которого вызвали.
	Robot string

	// Auth — авторизация портала.
	Auth Auth

	// EventToken — одноразовый токен ответа бизнес-процессу.
	// Пустой, если робот вызван вне бизнес-процесса.
	EventToken string

	// ReceivedAt — время получения вызова.
	ReceivedAt time.Time
}

// NewInvocation создаёт контекст вызова.
func NewInvocation(robot string, auth Auth, eventToken string) *Invocation {
	return &Invocation{
		ID:         uuid.New(),
		Robot:      robot,
		Auth:       auth,
		EventToken: strings.TrimSpace(eventToken),
		ReceivedAt: time.Now(),
	}
}

// HasEventToken возвращает true, если вызов пришёл из бизнес-процесса.
func (i *Invocation) HasEventToken() bool {
	return i.EventToken != ""
}
