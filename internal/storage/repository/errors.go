package repository

import "errors"

// Ошибки-сентинелы хранилища. Обработчики отличают их от обернутых
// ошибок драйвера: сентинелы не имеет смысла повторять, все остальное —
// временный сбой персистентности, и вызывающий может повторить запрос.
var (
	// ErrPromoNotFound возвращается, когда промокод отсутствует в реестре.
	ErrPromoNotFound = errors.New("promo code not found")

	// ErrPromoInactive возвращается, когда промокод деактивирован.
	ErrPromoInactive = errors.New("promo code is no longer active")

	// ErrPromoExhausted возвращается, когда лимит использований промокода исчерпан.
	ErrPromoExhausted = errors.New("promo code has reached its usage limit")

	// ErrDuplicatePayment возвращается при попытке записать платеж с уже
	// существующим payment_id. Новая запись при этом не создается.
	ErrDuplicatePayment = errors.New("payment already recorded")
)
