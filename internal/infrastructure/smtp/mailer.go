package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/go-verification-room/internal/config"
)

// Mailer sends the two emails that follow room creation.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, candidateName, chatLink string) error
	SendCandidateNotification(ctx context.Context, to, candidateName, chatLink string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

type emailData struct {
	CandidateName string
	ChatLink      string
}

var (
	employerTmpl = template.Must(template.New("employer").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #4F46E5;">Background Verification Request</h2>
  <p>Hello,</p>
  <p>You have been listed as a reference by <strong>{{.CandidateName}}</strong> for background verification.</p>
  <p>Please join the verification chat room to provide feedback:</p>
  <p style="margin: 30px 0;"><a href="{{.ChatLink}}" style="background: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Join Verification Chat</a></p>
  <p style="color: #666; font-size: 14px;">This is an automated email. Please do not reply to this message.</p>
</div>`))

	candidateTmpl = template.Must(template.New("candidate").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #059669;">Verification Initiated</h2>
  <p>Hi {{.CandidateName}},</p>
  <p>Your background verification process has been initiated. We have contacted your previous employer.</p>
  <p>You can track the verification progress here:</p>
  <p style="margin: 30px 0;"><a href="{{.ChatLink}}" style="background: #059669; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">View Verification Chat</a></p>
  <p style="color: #666; font-size: 14px;">This is an automated email. Please do not reply to this message.</p>
</div>`))
)

func (m *mailer) SendVerificationEmail(ctx context.Context, to, candidateName, chatLink string) error {
	subject := "Background Verification Request for " + candidateName
	return m.send(ctx, to, subject, employerTmpl, emailData{CandidateName: candidateName, ChatLink: chatLink})
}

func (m *mailer) SendCandidateNotification(ctx context.Context, to, candidateName, chatLink string) error {
	subject := "Your Background Verification is Being Processed"
	return m.send(ctx, to, subject, candidateTmpl, emailData{CandidateName: candidateName, ChatLink: chatLink})
}

func (m *mailer) send(ctx context.Context, to, subject string, tmpl *template.Template, data emailData) error {
	msg, err := compose(m.from, to, subject, tmpl, data)
	if err != nil {
		return err
	}
	return m.deliver(ctx, to, msg)
}

// compose renders an HTML email with its headers.
func compose(from, to, subject string, tmpl *template.Template, data emailData) ([]byte, error) {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("render %s email: %w", tmpl.Name(), err)
	}
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// deliver is smtp.SendMail with the dial and the session bounded by ctx.
func (m *mailer) deliver(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(m.host, m.port)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	} else {
		_ = conn.SetDeadline(time.Now().Add(time.Minute))
	}

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(m.from); err != nil {
		return err
	}
	if err := c.Rcpt(strings.TrimSpace(to)); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
