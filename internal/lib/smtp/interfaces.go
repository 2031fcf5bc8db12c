// Package smtp предоставляет SMTP-транспорт для исходящих писем.
package smtp

import "io"

// Client — одна SMTP-сессия: MAIL/RCPT/DATA и завершение.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface открывает сессии и знает адрес отправителя.
type TransportInterface interface {
	Connect() (Client, error)
	Sender() string
}
