// Package middlewarectx содержит HTTP middleware, которое кладет данные
// аутентифицированного пользователя в контекст запроса, ограничивает
// частоту запросов и закрывает премиум-разделы.
package middlewarectx

// Key — типизированный ключ контекста запроса.
type Key string

const (
	// User — имя аутентифицированного пользователя.
	User Key = "user"
	// Role — роль аутентифицированного пользователя.
	Role Key = "role"
	// UserUID — стабильный идентификатор пользователя.
	UserUID Key = "user_uid"
)
