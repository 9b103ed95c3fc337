// Package notify delivers email notifications outside the request path.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pipeline"

	"gopkg.in/gomail.v2"
)

// DefaultQueueSize bounds the number of emails waiting for delivery.
const DefaultQueueSize = 256

var (
	ErrQueueFull = errors.New("email queue is full")
	ErrClosed    = errors.New("email notifier is closed")
)

// Sender delivers rendered messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig holds the SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// EmailNotifier queues email intents and sends them from one background
// goroutine. It implements pipeline.Notifier.
type EmailNotifier struct {
	sender Sender
	from   string
	logger *slog.Logger
	queue  chan pipeline.EmailIntent

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewEmailNotifier builds a notifier for cfg. With an empty host, messages
// are rendered and logged instead of sent.
func NewEmailNotifier(cfg SMTPConfig, logger *slog.Logger) *EmailNotifier {
	var sender Sender
	if cfg.Host != "" {
		sender = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	}
	return NewEmailNotifierWithSender(sender, cfg.From, DefaultQueueSize, logger)
}

// NewEmailNotifierWithSender builds a notifier around an explicit sender.
// A nil sender logs messages instead of sending them.
func NewEmailNotifierWithSender(sender Sender, from string, queueSize int, logger *slog.Logger) *EmailNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	n := &EmailNotifier{
		sender: sender,
		from:   from,
		logger: logger.With("component", "email"),
		queue:  make(chan pipeline.EmailIntent, queueSize),
		done:   make(chan struct{}),
	}
	go n.run()
	return n
}

// Notify validates and enqueues an intent without waiting for delivery.
func (n *EmailNotifier) Notify(ctx context.Context, intent pipeline.EmailIntent) error {
	if intent.To == "" {
		return errors.New("email intent has no recipient")
	}
	if !HasTemplate(intent.Template) {
		return fmt.Errorf("unknown email template %q", intent.Template)
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return ErrClosed
	}

	select {
	case n.queue <- intent:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		n.logger.Warn("dropping email, queue full", "template", intent.Template, "to", intent.To)
		return ErrQueueFull
	}
}

// Close stops accepting intents and waits for queued ones to be sent.
func (n *EmailNotifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()
	<-n.done
}

func (n *EmailNotifier) run() {
	defer close(n.done)
	for intent := range n.queue {
		if err := n.send(intent); err != nil {
			n.logger.Error("failed to send email", "template", intent.Template, "to", intent.To, "lead_id", intent.LeadID, "error", err)
			continue
		}
		n.logger.Info("email sent", "template", intent.Template, "to", intent.To, "lead_id", intent.LeadID)
	}
}

func (n *EmailNotifier) send(intent pipeline.EmailIntent) error {
	subject, body, err := render(intent.Template, intent.Subject, intent.Data)
	if err != nil {
		return err
	}

	if n.sender == nil {
		n.logger.Info("SMTP not configured, email not sent", "template", intent.Template, "to", intent.To, "subject", subject)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", intent.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send %s email: %w", intent.Template, err)
	}
	return nil
}
