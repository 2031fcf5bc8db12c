package models

import "time"

// PaymentRecord представляет неизменяемую запись о завершенном внешнем
// платеже. PaymentID приходит от платежного виджета и служит ключом
// идемпотентности: запись с одним payment_id создается не более одного раза.
type PaymentRecord struct {
	ID            int       `json:"id"`
	UserUID       string    `json:"user_uid"`
	PaymentID     string    `json:"payment_id"`
	Status        string    `json:"status"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
}

// Параметры единственного SKU: пожизненный доступ к премиум-контенту гида.
const (
	PremiumPrice    = 29.99
	PremiumCurrency = "EUR"
	StatusCompleted = "completed"
)
