package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"brgykonek/internal/domain"
)

// OTPMailJob es el mensaje que consume el mailer externo.
type OTPMailJob struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Purpose   string `json:"purpose"`
	ExpiresAt string `json:"expires_at"`
}

type publishFunc func(ctx context.Context, queue string, body []byte) error

// QueueSender delega la entrega del correo a un worker via RabbitMQ.
type QueueSender struct {
	url     string
	queue   string
	publish publishFunc
}

func NewQueueSender(url, queue string) (*QueueSender, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	if strings.TrimSpace(queue) == "" {
		return nil, fmt.Errorf("amqp queue is required")
	}
	s := &QueueSender{url: url, queue: queue}
	s.publish = s.dialAndPublish
	return s, nil
}

func (s *QueueSender) SendOTP(ctx context.Context, toEmail string, code string, purpose domain.OTPType, expiresAt time.Time) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}
	body, err := json.Marshal(OTPMailJob{
		To:        toEmail,
		Subject:   subjectFor(purpose),
		Body:      otpBody(code, expiresAt),
		Purpose:   string(purpose),
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal mail job: %w", err)
	}
	return s.publish(ctx, s.queue, body)
}

func (s *QueueSender) dialAndPublish(ctx context.Context, queue string, body []byte) error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
