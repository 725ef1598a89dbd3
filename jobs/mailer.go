package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"

	"github.com/hibiken/asynq"
)

// SMTPConfig holds delivery settings for outbound mail.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// SendEmailJob delivers queued emails over SMTP.
type SendEmailJob struct {
	Config SMTPConfig
	Logger *slog.Logger

	// send is swappable for tests.
	send func(addr, from string, to []string, msg []byte) error
}

// NewSendEmailJob wires dependencies for the mail handler.
func NewSendEmailJob(cfg SMTPConfig, logger *slog.Logger) *SendEmailJob {
	return &SendEmailJob{
		Config: cfg,
		Logger: logger,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	addr := j.Config.Host + ":" + strconv.Itoa(j.Config.Port)
	msg := []byte("From: " + j.Config.From + "\r\n" +
		"To: " + payload.To + "\r\n" +
		"Subject: " + payload.Subject + "\r\n" +
		"\r\n" + payload.Body + "\r\n")
	if err := j.send(addr, j.Config.From, []string{payload.To}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", payload.To, err)
	}
	if j.Logger != nil {
		j.Logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	}
	return nil
}

// QueueMailer implements mail delivery by enqueueing a background task, so
// request handlers never block on SMTP.
type QueueMailer struct {
	Client *Client
}

// SendMail enqueues a send-email task.
func (m *QueueMailer) SendMail(ctx context.Context, to, subject, body string) error {
	_, err := m.Client.EnqueueSendEmail(ctx, SendEmailPayload{To: to, Subject: subject, Body: body})
	return err
}
