package email

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Domenick1991/tripmates/config"
	"github.com/Domenick1991/tripmates/internal/kafka"
	"gopkg.in/gomail.v2"
)

type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender mails connection notifications. Without SMTP settings it only logs them.
type Sender struct {
	dialer Dialer
	from   string
}

func NewSender(cfg config.SMTPConfig) *Sender {
	if !cfg.Enabled() {
		return &Sender{}
	}
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &Sender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   from,
	}
}

func (s *Sender) Send(ctx context.Context, event kafka.ConnectionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body := Compose(event)

	// User ids are mailable only when the identity provider issues e-mail subjects.
	if s.dialer == nil || !strings.Contains(event.UserID, "@") {
		log.Printf("notify %s: %s", event.UserID, subject)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", event.UserID)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", event.UserID, err)
	}
	return nil
}

// Compose renders the subject and body for one user's event.
func Compose(event kafka.ConnectionEvent) (string, string) {
	other := event.CounterpartyUserID
	switch {
	case event.Type == "connection_removed":
		return "Connection ended",
			fmt.Sprintf("Your travel connection with %s has ended.", other)
	case event.Status == "PENDING" && event.Direction == "RECEIVED":
		return "New travel buddy request",
			fmt.Sprintf("%s wants to travel with you. Open TripMates to accept or decline.", other)
	case event.Status == "PENDING":
		return "Request sent",
			fmt.Sprintf("Your request to %s has been sent.", other)
	case event.Status == "ACCEPTED":
		return "Connection accepted",
			fmt.Sprintf("You and %s are now travel buddies.", other)
	case event.Status == "REJECTED":
		return "Connection declined",
			fmt.Sprintf("The connection request with %s was declined.", other)
	default:
		return "Connection update",
			fmt.Sprintf("Your connection with %s changed.", other)
	}
}
