// Package models содержит доменную модель сервиса: пользователей,
// промокоды, записи о платежах и права доступа к премиум-контенту.
// Структуры используются в бизнес-логике и при работе с хранилищем.
package models

import "time"

// User представляет зарегистрированного пользователя гида.
type User struct {
	UID          string    // Уникальный идентификатор пользователя
	Username     string    // Имя пользователя (уникальное)
	Email        string    // Электронная почта для отображения и поддержки
	PasswordHash string    // Хэш пароля пользователя
	Role         string    // Роль пользователя, admin или user
	CreatedAt    time.Time // Дата регистрации
}

// Identity описывает аутентифицированного пользователя так, как его видит
// остальная часть приложения: непрозрачный стабильный идентификатор плюс
// почта. Выдается сервисом аутентификации, ядро его не изменяет.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}
