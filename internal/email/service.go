package email

import (
	"fmt"
	"net/smtp"

	"github.com/shopspring/decimal"
)

// SendFunc has the signature of smtp.SendMail
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service handles email sending via SMTP
type Service struct {
	host     string
	port     string
	from     string
	sendMail SendFunc
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host:     host,
		port:     port,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

// WithSendFunc replaces the SMTP transport, e.g. with a recorder in tests
func (s *Service) WithSendFunc(fn SendFunc) *Service {
	s.sendMail = fn
	return s
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(to string, order Order) error {
	subject := fmt.Sprintf("Order confirmation (order %s)", shortID(order.ID))
	body, err := BuildOrderConfirmationBody(order)
	if err != nil {
		return err
	}
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return s.sendMail(addr, nil, s.from, []string{to}, []byte(msg))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Order is what the confirmation email shows
type Order struct {
	ID         string
	Address    string
	PaymentID  string
	DeliveryID string
	Items      []OrderItem
	Total      decimal.Decimal
}
