package notification

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"net/url"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/auth"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	FromName   string
	AppBaseURL string
}

// EmailService sends verification and reset emails over SMTP. It implements
// auth.Mailer.
type EmailService struct {
	config EmailConfig
}

// NewEmailService creates an SMTP-backed mailer.
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

// Send renders the named template with a link carrying the token and mails it.
func (s *EmailService) Send(templateName, toAddress, token string) error {
	switch templateName {
	case auth.MailTemplateVerification:
		link := s.link("/auth/verify-email", token)
		return s.sendEmail(toAddress, "Verify Your Email Address", fmt.Sprintf(`<html><body>
			<h2>Verify Your Email Address</h2>
			<p>Welcome to NutriCoach! Please verify your email address to complete your registration.</p>
			<p><a href="%s">Click here to verify your email</a></p>
			<p>Or copy this link to your browser: %s</p>
			<p>This link will expire in 24 hours.</p>
		</body></html>`, link, link))
	case auth.MailTemplatePasswordReset:
		link := s.link("/auth/reset-password", token)
		return s.sendEmail(toAddress, "Reset Your Password", fmt.Sprintf(`<html><body>
			<h2>Reset Your Password</h2>
			<p>A password reset has been requested for your account.</p>
			<p><a href="%s">Click here to reset your password</a></p>
			<p>Or copy this link to your browser: %s</p>
			<p>This link will expire in 24 hours.</p>
			<p>If you did not request this password reset, please ignore this email.</p>
		</body></html>`, link, link))
	default:
		return fmt.Errorf("unknown email template: %s", templateName)
	}
}

func (s *EmailService) link(path, token string) string {
	return s.config.AppBaseURL + path + "?token=" + url.QueryEscape(token)
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	smtpAuth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(addr, smtpAuth, s.config.From, []string{to}, []byte(msg))
}

// LogMailer logs emails instead of sending them. Used when SMTP is not
// configured so local development still surfaces the tokens.
type LogMailer struct {
	Logger *slog.Logger
}

// Send logs the email that would have been sent.
func (m *LogMailer) Send(templateName, toAddress, token string) error {
	m.Logger.Info("email not sent (SMTP not configured)",
		"template", templateName, "to", toAddress, "token", token)
	return nil
}
