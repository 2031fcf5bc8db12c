package rabbitmq

import (
	"github.com/streadway/amqp"

	"github.com/ibizainsider/entitlement-service/internal/models"
)

// RoutingKeyGranted — ключ маршрутизации события о выдаче премиум-доступа.
const RoutingKeyGranted = "premium.granted"

// GrantedPublisher публикует события о выдаче доступа в обменник entitlements.
type GrantedPublisher struct {
	ch *amqp.Channel
}

// NewGrantedPublisher создает новый GrantedPublisher.
func NewGrantedPublisher(ch *amqp.Channel) *GrantedPublisher {
	return &GrantedPublisher{ch: ch}
}

// PublishGranted отправляет событие о выдаче премиум-доступа воркерам уведомлений.
func (p *GrantedPublisher) PublishGranted(event models.GrantedEvent) error {
	return PublishMessage(p.ch, ExchangeEntitlements, RoutingKeyGranted, event)
}
