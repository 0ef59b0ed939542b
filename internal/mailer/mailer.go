package mailer

import (
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"

	"github.com/headshotly/backend/internal/config"
)

// Mailer sends transactional notifications through Resend. A missing API
// key disables sending without being an error; notifications are best
// effort throughout.
type Mailer struct {
	client *resend.Client
	from   string
}

func New(cfg *config.ResendConfig) *Mailer {
	if cfg.APIKey == "" {
		log.Println("Missing RESEND_API_KEY. Email notifications will not be sent.")
		return &Mailer{from: cfg.From}
	}
	return &Mailer{
		client: resend.NewClient(cfg.APIKey),
		from:   cfg.From,
	}
}

// SendTrainingComplete notifies the user that their model finished
// training and how many credits the run consumed.
func (m *Mailer) SendTrainingComplete(to string, creditsUsed int64) error {
	if m.client == nil || to == "" {
		return nil
	}

	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: "Your model was successfully trained!",
		Html:    fmt.Sprintf("<h2>Your model training was successful! %d credits have been used from your account.</h2>", creditsUsed),
	})
	if err != nil {
		log.Printf("[MAILER] Failed to send training notification to %s: %v", to, err)
	}
	return err
}
