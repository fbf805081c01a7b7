package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mailtpl "github.com/oksasatya/go-notes-api/pkg/mailer/templates"
)

// Outcome tells the queue consumer what to do with a delivery.
type Outcome int

const (
	Ack     Outcome = iota // sent
	Drop                   // unusable message, never retried
	Requeue                // delivery failed, try again later
)

var ErrInvalidJob = errors.New("email job missing recipient or content")

// Process decodes one queued EmailJob, renders its template if it names one and sends it.
func Process(ctx context.Context, sender Sender, body []byte) (Outcome, error) {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return Drop, fmt.Errorf("decode job: %w", err)
	}
	if !job.Valid() {
		return Drop, ErrInvalidJob
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return Drop, fmt.Errorf("render %s: %w", job.Template, err)
		}
		subject, text, html = s, t, h
	}

	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := sender.Send(c, job.To, subject, text, html); err != nil {
		return Requeue, fmt.Errorf("send: %w", err)
	}
	return Ack, nil
}
