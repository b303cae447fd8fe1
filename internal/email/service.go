package email

import (
	"fmt"
	"net/smtp"

	"github.com/example/letterpress-shop/internal/domain/order"
)

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(o *order.Order) error {
	subject := fmt.Sprintf("Order Confirmation - %s", o.OrderNumber)
	body := BuildOrderConfirmationBody(o)
	return s.send(o.UserEmail, subject, body)
}

// SendShippingNotification sends a shipment notice with carrier and tracking
func (s *Service) SendShippingNotification(o *order.Order) error {
	subject := fmt.Sprintf("Your Order Has Shipped - %s", o.OrderNumber)
	body := BuildShippingNotificationBody(o)
	return s.send(o.UserEmail, subject, body)
}

// SendAccountApproved tells a wholesale customer their account is active
func (s *Service) SendAccountApproved(to, name string) error {
	subject := "Your Wholesale Account Has Been Approved"
	body := BuildAccountApprovedBody(name)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
