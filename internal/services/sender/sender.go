// Package sender отправляет приветственные письма пользователям,
// получившим премиум-доступ. Сообщения приходят из очереди RabbitMQ.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
	"github.com/ibizainsider/entitlement-service/internal/lib/smtp"
	"github.com/ibizainsider/entitlement-service/internal/models"
)

// SenderService отправляет письма через SMTP транспорт.
type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport smtp.TransportInterface) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendPremiumWelcome разбирает событие выдачи доступа и отправляет
// приветственное письмо. Текст зависит от способа получения доступа.
func (s *SenderService) SendPremiumWelcome(body []byte) error {
	var event models.GrantedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("Failed to unmarshal message body", "error", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}
	if event.Email == "" {
		s.log.Info("grant event without email, skipping welcome letter",
			slog.String("user_uid", event.UserUID))
		return nil
	}

	to := []string{event.Email}
	subject := "Добро пожаловать в Ibiza Insider Premium"

	var bodyText string
	switch event.Via {
	case models.GrantViaPromoCode:
		bodyText = fmt.Sprintf(`Здравствуйте!

Ваш промокод %s принят, премиум-доступ к гиду по Ибице открыт.
Вам доступны все премиум-разделы: пляжи, рестораны, вечеринки и ежедневные сводки.

Хорошего отдыха!`, event.Reference)
	case models.GrantViaPayment:
		bodyText = fmt.Sprintf(`Здравствуйте!

Ваш платеж %s получен, премиум-доступ к гиду по Ибице открыт.
Вам доступны все премиум-разделы: пляжи, рестораны, вечеринки и ежедневные сводки.

Хорошего отдыха!`, event.Reference)
	default:
		bodyText = "Здравствуйте!\n\nВам открыт премиум-доступ к гиду по Ибице."
	}

	return s.sendEmail(to, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.Sender(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("Failed to connect to SMTP server", "error", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.Sender()); err != nil {
		s.log.Error("Failed to set MAIL FROM", "from", s.transport.Sender(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("Failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("Failed to get Data writer", "error", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("Failed to write email body", "error", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("Failed to close Data writer", "error", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("Failed to quit SMTP client", "error", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
