package mailer

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	from string
	to   []string
	msg  []byte
	err  error
}

func (r *recordingTransport) Send(from string, to []string, msg []byte) error {
	r.from, r.to, r.msg = from, to, msg
	return r.err
}

var testConfig = Config{
	APIKey: "key",
	Host:   "smtp.example.com",
	Port:   587,
	User:   "apikey",
	From:   "no-reply@example.com",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readMessage(t *testing.T, raw []byte) (*mail.Reader, string) {
	t.Helper()
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	part, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	return mr, string(body)
}

func TestSendWelcome(t *testing.T) {
	transport := &recordingTransport{}
	m := NewWithTransport(testConfig, transport, discardLogger())

	require.NoError(t, m.SendWelcome("ann@example.com", "Ann"))

	assert.Equal(t, "no-reply@example.com", transport.from)
	assert.Equal(t, []string{"ann@example.com"}, transport.to)

	mr, body := readMessage(t, transport.msg)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Task Manager Application", subject)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "ann@example.com", to[0].Address)

	assert.Contains(t, body, "Welcome <strong>Ann</strong>")
}

func TestSendCancellation_EscapesName(t *testing.T) {
	transport := &recordingTransport{}
	m := NewWithTransport(testConfig, transport, discardLogger())

	require.NoError(t, m.SendCancellation("bob@example.com", "<b>Bob</b>"))

	mr, body := readMessage(t, transport.msg)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Sorry to see you go!", subject)
	assert.Contains(t, body, "&lt;b&gt;Bob&lt;/b&gt;")
	assert.NotContains(t, body, "<b>Bob</b>")
}

func TestSend_NotConfigured(t *testing.T) {
	transport := &recordingTransport{}
	cfg := testConfig
	cfg.APIKey = ""
	m := NewWithTransport(cfg, transport, discardLogger())

	assert.False(t, m.Configured())
	assert.ErrorIs(t, m.SendWelcome("ann@example.com", "Ann"), ErrNotConfigured)
	assert.Nil(t, transport.msg)
}

func TestSend_TransportError(t *testing.T) {
	boom := errors.New("connection refused")
	m := NewWithTransport(testConfig, &recordingTransport{err: boom}, discardLogger())

	err := m.SendWelcome("ann@example.com", "Ann")
	assert.ErrorIs(t, err, boom)
}

func TestNewSMTPTransport(t *testing.T) {
	tr := NewSMTPTransport(testConfig)
	assert.Equal(t, "smtp.example.com:587", tr.addr)
	assert.Equal(t, "key", tr.password)
	assert.Equal(t, "apikey", tr.user)
}
