// Package notify delivers intake notifications to service centers.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Attachment is a file sent alongside a message.
type Attachment struct {
	Filename string
	Path     string
}

// Message is a fully addressed outbound message.
type Message struct {
	From       string
	To         string
	Cc         []string
	Subject    string
	Body       string
	Attachment *Attachment
}

// Transport delivers a message. Implementations must not retry.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// Photo is a transient upload that the dispatcher attaches and then releases.
type Photo interface {
	Path() string
	OriginalName() string
	Release()
}

// Notification is what the intake pipeline asks to have sent.
type Notification struct {
	To      string
	Cc      string
	Subject string
	Body    string
	Photo   Photo
}

// Outcome reports whether delivery succeeded.
type Outcome struct {
	Delivered bool
	Reason    string
}

// Dispatcher sends notifications through a Transport.
type Dispatcher struct {
	transport Transport
	from      string
	timeout   time.Duration
}

// NewDispatcher creates a Dispatcher. A zero timeout leaves ctx as given.
func NewDispatcher(transport Transport, from string, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		from:      from,
		timeout:   timeout,
	}
}

// Send makes a single delivery attempt and releases n.Photo afterwards,
// whatever the outcome. Failures are reported in the Outcome, not returned.
func (d *Dispatcher) Send(ctx context.Context, n Notification) Outcome {
	if n.Photo != nil {
		defer n.Photo.Release()
	}

	msg := Message{
		From:    d.from,
		To:      n.To,
		Subject: n.Subject,
		Body:    n.Body,
	}
	if n.Cc != "" {
		msg.Cc = []string{n.Cc}
	}
	if n.Photo != nil {
		msg.Attachment = &Attachment{Filename: n.Photo.OriginalName(), Path: n.Photo.Path()}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := d.transport.Deliver(ctx, msg); err != nil {
		zap.L().Error("notification delivery failed",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return Outcome{Delivered: false, Reason: err.Error()}
	}

	zap.L().Info("notification delivered",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Duration("elapsed", time.Since(start)),
	)
	return Outcome{Delivered: true}
}
