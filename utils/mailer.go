package utils

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// Email is one outgoing message handed to a Mailer
type Email struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer abstracts the delivery transport. Send returns the message ID used
// for tracking; any error means the send failed and will not be retried by
// the scheduler.
type Mailer interface {
	Send(email Email) (string, error)
}

// SMTPMailer delivers through an SMTP relay via gomail
type SMTPMailer struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

func NewSMTPMailer(host string, port int, username, password, fromEmail, fromName string) *SMTPMailer {
	return &SMTPMailer{
		Host:      host,
		Port:      port,
		Username:  username,
		Password:  password,
		FromEmail: fromEmail,
		FromName:  fromName,
	}
}

func (m *SMTPMailer) Send(email Email) (string, error) {
	from := email.From
	if from == "" {
		from = m.FromEmail
	}
	if m.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.FromName, from)
	}

	messageID := uuid.New().String()

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/html", email.Body)

	d := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := d.DialAndSend(msg); err != nil {
		return "", fmt.Errorf("error sending email: %w", err)
	}

	return messageID, nil
}
