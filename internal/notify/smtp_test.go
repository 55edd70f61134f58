package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type fakeSender struct {
	err  error
	sent []*mail.Msg
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	f.sent = append(f.sent, messages...)
	return f.err
}

// writePhoto creates a small attachment file under t.TempDir.
func writePhoto(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "abc.jpg")
	require.NoError(t, os.WriteFile(path, []byte("\xff\xd8\xff\xe0jpeg"), 0o600))
	return path
}

func testMessage(t *testing.T) Message {
	t.Helper()
	return Message{
		From:       "noreply@ecoroute.test",
		To:         "n@x.test",
		Cc:         []string{"ana@example.com"},
		Subject:    "Garbage Report",
		Body:       "Garbage reported at: 1 Quay St",
		Attachment: &Attachment{Filename: "pile.jpg", Path: writePhoto(t)},
	}
}

func TestBuildMsg(t *testing.T) {
	m, err := BuildMsg(testMessage(t))
	require.NoError(t, err)

	rcpts, err := m.GetRecipients()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"n@x.test", "ana@example.com"}, rcpts)

	assert.Equal(t, []string{"Garbage Report"}, m.GetGenHeader(mail.HeaderSubject))

	atts := m.GetAttachments()
	require.Len(t, atts, 1)
	assert.Equal(t, "pile.jpg", atts[0].Name)
}

func TestBuildMsg_MissingAttachment(t *testing.T) {
	msg := testMessage(t)
	msg.Attachment.Path = filepath.Join(t.TempDir(), "gone.jpg")

	_, err := BuildMsg(msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pile.jpg")
}

func TestBuildMsg_NoAttachment(t *testing.T) {
	msg := testMessage(t)
	msg.Attachment = nil

	m, err := BuildMsg(msg)
	require.NoError(t, err)
	assert.Empty(t, m.GetAttachments())
}

func TestSMTPTransport_Deliver_MissingAttachment(t *testing.T) {
	fs := &fakeSender{}
	tr := NewSMTPTransport(SMTPConfig{Host: "smtp.example.com", Port: 587})
	tr.newSender = func() (sender, error) { return fs, nil }

	msg := testMessage(t)
	msg.Attachment.Path = "/nonexistent/photo.jpg"

	require.Error(t, tr.Deliver(context.Background(), msg))
	assert.Empty(t, fs.sent, "nothing is sent without the photo")
}

func TestDispatcher_Send_MissingPhotoIsNotDelivered(t *testing.T) {
	fs := &fakeSender{}
	tr := NewSMTPTransport(SMTPConfig{Host: "smtp.example.com", Port: 587})
	tr.newSender = func() (sender, error) { return fs, nil }
	photo := &missingPhoto{}

	out := NewDispatcher(tr, "noreply@ecoroute.test", 0).Send(context.Background(), Notification{
		To:      "n@x.test",
		Subject: "Garbage Report",
		Photo:   photo,
	})

	assert.False(t, out.Delivered)
	assert.NotEmpty(t, out.Reason)
	assert.Empty(t, fs.sent)
	assert.Equal(t, 1, photo.released)
}

type missingPhoto struct{ released int }

func (p *missingPhoto) Path() string         { return "/nonexistent/photo.jpg" }
func (p *missingPhoto) OriginalName() string { return "photo.jpg" }
func (p *missingPhoto) Release()             { p.released++ }

func TestBuildMsg_InvalidAddresses(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Message)
	}{
		{"from", func(m *Message) { m.From = "not an address" }},
		{"to", func(m *Message) { m.To = "" }},
		{"cc", func(m *Message) { m.Cc = []string{"@@"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := testMessage(t)
			tt.modify(&msg)
			_, err := BuildMsg(msg)
			assert.Error(t, err)
		})
	}
}

func TestSMTPTransport_Deliver(t *testing.T) {
	fs := &fakeSender{}
	tr := NewSMTPTransport(SMTPConfig{Host: "smtp.example.com", Port: 587})
	tr.newSender = func() (sender, error) { return fs, nil }

	require.NoError(t, tr.Deliver(context.Background(), testMessage(t)))
	assert.Len(t, fs.sent, 1)
}

func TestSMTPTransport_Deliver_Errors(t *testing.T) {
	tr := NewSMTPTransport(SMTPConfig{Host: "smtp.example.com", Port: 587})

	tr.newSender = func() (sender, error) { return &fakeSender{err: errors.New("dial tcp: refused")}, nil }
	err := tr.Deliver(context.Background(), testMessage(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")

	tr.newSender = func() (sender, error) { return nil, errors.New("no client") }
	assert.Error(t, tr.Deliver(context.Background(), testMessage(t)))
}

func TestSMTPTransport_Dial(t *testing.T) {
	tr := NewSMTPTransport(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p"})
	s, err := tr.dial()
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = NewSMTPTransport(SMTPConfig{}).dial()
	assert.Error(t, err, "empty host is rejected")
}
