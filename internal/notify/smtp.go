package notify

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// sender is the part of *mail.Client used for delivery.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPTransport delivers messages over SMTP with STARTTLS.
type SMTPTransport struct {
	cfg       SMTPConfig
	newSender func() (sender, error)
}

// NewSMTPTransport creates a transport for cfg. The connection is opened per delivery.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	t := &SMTPTransport{cfg: cfg}
	t.newSender = t.dial
	return t
}

func (t *SMTPTransport) dial() (sender, error) {
	opts := []mail.Option{
		mail.WithPort(t.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if t.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}
	if t.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(t.cfg.Timeout))
	}

	client, err := mail.NewClient(t.cfg.Host, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "smtp: create client")
	}
	return client, nil
}

// Deliver implements Transport.
func (t *SMTPTransport) Deliver(ctx context.Context, msg Message) error {
	m, err := BuildMsg(msg)
	if err != nil {
		return err
	}

	s, err := t.newSender()
	if err != nil {
		return err
	}

	if err := s.DialAndSendWithContext(ctx, m); err != nil {
		return eris.Wrapf(err, "smtp: send to %s", msg.To)
	}
	return nil
}

// BuildMsg converts a Message into a go-mail message.
func BuildMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, eris.Wrapf(err, "smtp: invalid from address %q", msg.From)
	}
	if err := m.To(msg.To); err != nil {
		return nil, eris.Wrapf(err, "smtp: invalid to address %q", msg.To)
	}
	if len(msg.Cc) > 0 {
		if err := m.Cc(msg.Cc...); err != nil {
			return nil, eris.Wrap(err, "smtp: invalid cc address")
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if msg.Attachment != nil {
		// AttachFile skips paths it cannot stat, so a missing photo must fail here.
		info, err := os.Stat(msg.Attachment.Path)
		if err != nil {
			return nil, eris.Wrapf(err, "smtp: attachment %q unreadable", msg.Attachment.Filename)
		}
		if info.IsDir() {
			return nil, eris.Errorf("smtp: attachment %q is a directory", msg.Attachment.Filename)
		}
		m.AttachFile(msg.Attachment.Path, mail.WithFileName(msg.Attachment.Filename))
		if len(m.GetAttachments()) != 1 {
			return nil, eris.Errorf("smtp: attachment %q was not added", msg.Attachment.Filename)
		}
	}
	return m, nil
}
