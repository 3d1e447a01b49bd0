package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"codegate/pkg/models"
)

// SMTPNotifier delivers daily codes by email.
type SMTPNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPNotifier creates a new SMTPNotifier.
func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, username: username, password: password, from: from}
}

// DeliverDailyCode sends the code to the recipient's address.
func (n *SMTPNotifier) DeliverDailyCode(ctx context.Context, name, email string, code *models.DailyCode) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", email)
	fmt.Fprintf(&b, "Subject: Daily access code - %s\r\n", code.Day)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", name)
	fmt.Fprintf(&b, "Your access code for %s is: %s\r\n\r\n", code.Day, code.Code)
	fmt.Fprintf(&b, "It is valid until %s.\r\n", code.ExpiresAt.Format("2006-01-02 15:04 MST"))

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.username, n.password, n.host)

	// net/smtp has no context support; honor cancellation around the call.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, n.from, []string{email}, []byte(b.String()))
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send daily code to %s: %w", email, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
