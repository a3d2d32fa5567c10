package mail

import (
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gwi.com/aiclone/internal/config"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestService(t *testing.T, sender string, sendErr error) (*Service, *[]sentMail) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cfg := config.Config{
		SMTPServer:     "smtp.example.com",
		SMTPPort:       587,
		SenderEmail:    sender,
		SenderPassword: "app-password",
		AppName:        "AIClone",
	}
	var sent []sentMail
	svc := NewService(cfg, logger).WithSender(func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return sendErr
	})
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC) }
	return svc, &sent
}

func TestSendRegistrationConfirmation(t *testing.T) {
	svc, sent := newTestService(t, "noreply@gmail.com", nil)

	ok := svc.SendRegistrationConfirmation("dave@gmail.com", "dave")
	require.True(t, ok)
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", m.addr)
	assert.Equal(t, "noreply@gmail.com", m.from)
	assert.Equal(t, []string{"dave@gmail.com"}, m.to)
	assert.Contains(t, m.msg, "Content-Type: text/html")
	assert.Contains(t, m.msg, "<strong>dave</strong>")
	assert.Contains(t, m.msg, "04/03/2026 10:30")
}

func TestSendPasswordResetEscapesLink(t *testing.T) {
	svc, sent := newTestService(t, "noreply@gmail.com", nil)

	ok := svc.SendPasswordReset("erin@gmail.com", "erin", "http://localhost:3000/reset-password?token=abc")
	require.True(t, ok)
	require.Len(t, *sent, 1)
	assert.Contains(t, (*sent)[0].msg, `href="http://localhost:3000/reset-password?token=abc"`)
}

func TestSendNotConfigured(t *testing.T) {
	svc, sent := newTestService(t, "", nil)

	assert.False(t, svc.Configured())
	assert.False(t, svc.SendRegistrationConfirmation("frank@gmail.com", "frank"))
	assert.Empty(t, *sent)
}

func TestSendFailureReportsFalse(t *testing.T) {
	svc, sent := newTestService(t, "noreply@gmail.com", errors.New("535 auth failed"))

	assert.False(t, svc.SendPasswordReset("gina@gmail.com", "gina", "http://x/reset"))
	assert.Len(t, *sent, 1)
}
