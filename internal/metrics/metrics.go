// Package metrics объявляет счетчики Prometheus для операций ядра.
// Счетчики регистрируются в реестре по умолчанию и отдаются через /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PromoRedemptions — исходы погашений промокодов.
	PromoRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promo_redemptions_total",
		Help: "Promo code redemption attempts by outcome.",
	}, []string{"outcome"})

	// PaymentsRecorded — исходы записи платежей.
	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Payment record attempts by outcome.",
	}, []string{"outcome"})

	// EntitlementGrants — выданные премиум-доступы по способу выдачи.
	EntitlementGrants = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlement_grants_total",
		Help: "Granted premium entitlements by grant path.",
	}, []string{"via"})
)
