package smtp

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/ibizainsider/entitlement-service/internal/config"
	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
)

// Transport открывает аутентифицированные STARTTLS-сессии с SMTP-сервером,
// через который уходят приветственные письма.
type Transport struct {
	cfg config.SMTPConnection
	log *slog.Logger
}

// NewTransport создает новый Transport поверх настроек SMTP-секции конфига.
func NewTransport(cfg config.SMTPConnection, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log}
}

// Sender возвращает адрес, от имени которого отправляются письма.
func (t *Transport) Sender() string {
	return t.cfg.SMTPUser
}

// Connect устанавливает соединение с SMTP сервером: dial, STARTTLS, auth.
// Сервер без поддержки STARTTLS считается ошибкой, письма открытым текстом
// не отправляются.
func (t *Transport) Connect() (Client, error) {
	const op = "smtp.Connect"

	addr := net.JoinHostPort(t.cfg.SMTPHost, t.cfg.SMTPPort)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.log.Error("failed to dial SMTP server", slog.String("addr", addr), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.SMTPHost)
	if err != nil {
		t.log.Error("failed to create SMTP client", sl.Err(err))
		if closeErr := conn.Close(); closeErr != nil {
			t.log.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		t.log.Error("SMTP server does not support STARTTLS")
		t.closeClient(client)
		return nil, fmt.Errorf("%s: smtp server does not support STARTTLS", op)
	}
	tlsConfig := &tls.Config{
		ServerName: t.cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		t.log.Error("failed to start TLS", sl.Err(err))
		t.closeClient(client)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	auth := smtp.PlainAuth("", t.cfg.SMTPUser, t.cfg.SMTPPass, t.cfg.SMTPHost)
	if err = client.Auth(auth); err != nil {
		t.log.Error("smtp auth failed", sl.Err(err))
		t.closeClient(client)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &smtpClientWrapper{client: client}, nil
}

func (t *Transport) closeClient(client *smtp.Client) {
	if err := client.Close(); err != nil {
		t.log.Error("failed to close client", sl.Err(err))
	}
}

// smtpClientWrapper адаптирует *smtp.Client к интерфейсу Client.
type smtpClientWrapper struct {
	client *smtp.Client
}

func (w *smtpClientWrapper) Mail(from string) error { return w.client.Mail(from) }

func (w *smtpClientWrapper) Rcpt(to string) error { return w.client.Rcpt(to) }

func (w *smtpClientWrapper) Data() (io.WriteCloser, error) { return w.client.Data() }

func (w *smtpClientWrapper) Quit() error { return w.client.Quit() }

func (w *smtpClientWrapper) Close() error { return w.client.Close() }
