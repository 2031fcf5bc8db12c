package models

import "time"

// GrantVia — способ, которым пользователь получил премиум-доступ.
type GrantVia string

const (
	// GrantViaPromoCode — доступ выдан за погашенный промокод.
	GrantViaPromoCode GrantVia = "promo_code"
	// GrantViaPayment — доступ выдан за подтвержденный платеж.
	GrantViaPayment GrantVia = "payment"
)

// Entitlement представляет текущее право пользователя на премиум-контент.
// Причина выдачи хранится явно, а не выводится из побочных записей.
//
// Инвариант: HasPremiumAccess монотонен — после перехода в true никакой
// код не возвращает его в false, а GrantedVia/GrantReference/GrantedAt
// первой успешной выдачи никогда не перезаписываются.
type Entitlement struct {
	UserUID          string     `json:"user_uid"`
	HasPremiumAccess bool       `json:"has_premium_access"`
	GrantedVia       GrantVia   `json:"granted_via,omitempty"`
	GrantReference   string     `json:"grant_reference,omitempty"`
	GrantedAt        *time.Time `json:"granted_at,omitempty"`
}

// GrantedEvent — сообщение о выдаче премиум-доступа, публикуемое в RabbitMQ
// для воркера уведомлений.
type GrantedEvent struct {
	UserUID   string   `json:"user_uid"`
	Email     string   `json:"email"`
	Via       GrantVia `json:"via"`
	Reference string   `json:"reference"`
}
