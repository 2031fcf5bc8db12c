package models

import "time"

// PromoCode представляет выданный промокод. Код хранится в каноническом
// виде: верхний регистр, только латинские буквы и цифры.
//
// Инвариант: UsesCount никогда не превышает MaxUses. Он обеспечивается
// атомарным условным инкрементом в хранилище, а не проверкой перед записью.
// Коды не удаляются, только деактивируются.
type PromoCode struct {
	Code      string    `json:"code"`
	IsActive  bool      `json:"is_active"`
	UsesCount int       `json:"uses_count"`
	MaxUses   *int      `json:"max_uses,omitempty"` // nil — без ограничения
	CreatedAt time.Time `json:"created_at"`
}

// Exhausted сообщает, исчерпан ли лимит использований кода.
func (p *PromoCode) Exhausted() bool {
	return p.MaxUses != nil && p.UsesCount >= *p.MaxUses
}
