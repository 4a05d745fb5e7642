package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/config"
)

var ErrNoRecipient = errors.New("message has no recipient")

// Attachment is a file sent along with a message
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a single outgoing mail
type Message struct {
	To          string
	ToName      string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// New picks SMTP delivery when mail is enabled, otherwise a mailer that only logs
func New(cfg *config.MailConfig, logger *zap.Logger) Mailer {
	if cfg == nil || !cfg.Enabled || cfg.Host == "" {
		logger.Info("Mail delivery disabled, outgoing messages will be logged")
		return NewLogMailer(logger)
	}
	logger.Info("Using SMTP mail delivery", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
	return NewSMTPMailer(cfg, logger)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends multipart messages through an SMTP relay
type SMTPMailer struct {
	cfg      config.MailConfig
	logger   *zap.Logger
	sendMail sendFunc
	now      func() time.Time
}

func NewSMTPMailer(cfg *config.MailConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:      *cfg,
		logger:   logger,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	if msg == nil || strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := m.build(msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	if err := m.sendMail(addr, auth, m.cfg.From, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}

	m.logger.Info("Mail sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

func (m *SMTPMailer) build(msg *Message) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	from := mail.Address{Name: m.cfg.FromName, Address: m.cfg.From}
	to := mail.Address{Name: msg.ToName, Address: msg.To}

	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", to.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", writer.Boundary())

	body, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=\"UTF-8\""},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := body.Write([]byte(msg.Body)); err != nil {
		return nil, err
	}

	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {fmt.Sprintf("%s; name=%q", contentType, att.Filename)},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", att.Filename)},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64Lines(part, att.Data); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64Lines wraps the encoding at 76 characters per RFC 2045
func writeBase64Lines(w interface{ Write([]byte) (int, error) }, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := w.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	if encoded == "" {
		return nil
	}
	_, err := w.Write([]byte(encoded + "\r\n"))
	return err
}

// LogMailer records messages in the log instead of delivering them
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg *Message) error {
	if msg == nil || strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	names := make([]string, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		names = append(names, att.Filename)
	}
	m.logger.Info("Mail delivery disabled, message not sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Strings("attachments", names),
	)
	return nil
}
