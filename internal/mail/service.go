package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gwi.com/aiclone/internal/config"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service sends notification emails. Sending is best effort: every method
// reports success as a bool and logs failures instead of returning them.
type Service struct {
	server   string
	port     int
	sender   string
	password string
	appName  string
	send     SendFunc
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewService(cfg config.Config, logger logrus.FieldLogger) *Service {
	return &Service{
		server:   cfg.SMTPServer,
		port:     cfg.SMTPPort,
		sender:   cfg.SenderEmail,
		password: cfg.SenderPassword,
		appName:  cfg.AppName,
		send:     smtp.SendMail,
		logger:   logger,
		now:      time.Now,
	}
}

// WithSender replaces the SMTP transport.
func (s *Service) WithSender(send SendFunc) *Service {
	s.send = send
	return s
}

func (s *Service) Configured() bool {
	return s.sender != "" && s.password != ""
}

var registrationTmpl = template.Must(template.New("registration").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: 'Segoe UI', Tahoma, sans-serif;">
  <h1>🎉 Chào mừng bạn đến với {{.AppName}}!</h1>
  <p>Xin chào <strong>{{.Username}}</strong>,</p>
  <p>Cảm ơn bạn đã đăng ký tài khoản tại {{.AppName}}!</p>
  <ul>
    <li><strong>Username:</strong> {{.Username}}</li>
    <li><strong>Email:</strong> {{.Email}}</li>
    <li><strong>Ngày đăng ký:</strong> {{.Date}}</li>
  </ul>
  <p>Bạn đã có thể đăng nhập ngay bây giờ.</p>
  <p>Trân trọng,<br><strong>{{.AppName}} Team</strong></p>
  <p style="color: #999; font-size: 12px;">Đây là email tự động từ hệ thống. Vui lòng không trả lời email này.</p>
</body>
</html>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: 'Segoe UI', Tahoma, sans-serif;">
  <h1>🔐 Đặt lại mật khẩu</h1>
  <p>Xin chào {{.Username}},</p>
  <p>Chúng tôi đã nhận được yêu cầu đặt lại mật khẩu cho tài khoản của bạn.</p>
  <p><strong>⚠️ Nếu bạn không yêu cầu điều này, vui lòng bỏ qua email này.</strong></p>
  <p><a href="{{.Link}}">Đặt lại mật khẩu</a></p>
  <p><strong>Hoặc sao chép link này:</strong><br>{{.Link}}</p>
  <p><strong>Link này sẽ hết hạn trong 24 giờ.</strong></p>
  <p>Trân trọng,<br><strong>{{.AppName}} Team</strong></p>
</body>
</html>`))

func (s *Service) SendRegistrationConfirmation(to, username string) bool {
	subject := fmt.Sprintf("🎉 Chào mừng đến với %s! - Xác nhận đăng ký", s.appName)
	return s.deliver(to, subject, registrationTmpl, map[string]string{
		"AppName":  s.appName,
		"Username": username,
		"Email":    to,
		"Date":     s.now().Format("02/01/2006 15:04"),
	})
}

func (s *Service) SendPasswordReset(to, username, link string) bool {
	subject := fmt.Sprintf("%s - Password Reset Request", s.appName)
	return s.deliver(to, subject, resetTmpl, map[string]string{
		"AppName":  s.appName,
		"Username": username,
		"Link":     link,
	})
}

func (s *Service) deliver(to, subject string, tmpl *template.Template, data any) bool {
	log := s.logger.WithFields(logrus.Fields{"to": to, "template": tmpl.Name()})
	if !s.Configured() {
		log.Warn("email service not configured, skipping send")
		return false
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		log.WithError(err).Error("failed to render email")
		return false
	}

	msg := buildMessage(s.sender, to, subject, body.String())
	addr := s.server + ":" + strconv.Itoa(s.port)
	auth := smtp.PlainAuth("", s.sender, s.password, s.server)
	if err := s.send(addr, auth, s.sender, []string{to}, msg); err != nil {
		log.WithError(err).Error("failed to send email")
		return false
	}
	log.Info("email sent")
	return true
}

func buildMessage(from, to, subject, html string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return b.Bytes()
}
