// Package sender отправляет письма из очереди уведомлений: коды подтверждения
// и подтверждения записи к врачу.
package sender

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/lib/smtp"
	"github.com/magabrotheeeer/aahar/internal/models"
)

// ErrUnexpectedKind сообщение попало не в ту очередь.
var ErrUnexpectedKind = errors.New("unexpected notification kind")

// SenderService формирует и отправляет письма.
type SenderService struct {
	transport smtp.Dialer
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport smtp.Dialer) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendOTP отправляет письмо с одноразовым кодом.
func (s *SenderService) SendOTP(body []byte) error {
	const op = "sender.SendOTP"
	n, err := s.decode(body, models.NotificationOTP)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n.OTP == "" {
		return fmt.Errorf("%s: empty otp", op)
	}

	subject := "Aahar: your verification code"
	bodyText := fmt.Sprintf("Hello!\n\nYour verification code is %s.\n\nThe code is valid for 10 minutes. If you did not request it, please ignore this email.",
		n.OTP)
	return s.sendEmail([]string{n.Email}, subject, bodyText)
}

// SendBookingConfirmation отправляет подтверждение записи к врачу.
func (s *SenderService) SendBookingConfirmation(body []byte) error {
	const op = "sender.SendBookingConfirmation"
	n, err := s.decode(body, models.NotificationBooking)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n.Appointment == nil {
		return fmt.Errorf("%s: missing appointment", op)
	}

	a := n.Appointment
	subject := "Aahar: appointment confirmed"
	bodyText := fmt.Sprintf("Hello!\n\nYour appointment with %s is booked for %s at %s (%s).\n\nIf your plans change, please let the clinic know in advance.",
		a.DoctorName, a.Date, a.Time, a.Type)
	return s.sendEmail([]string{n.Email}, subject, bodyText)
}

func (s *SenderService) decode(body []byte, kind models.NotificationKind) (*models.Notification, error) {
	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return nil, fmt.Errorf("error unmarshalling message: %w", err)
	}
	if n.Kind != kind {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedKind, n.Kind)
	}
	if n.Email == "" {
		return nil, errors.New("empty recipient")
	}
	return &n, nil
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.From()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", sl.Email(addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.String("subject", subject), slog.Int("recipients", len(to)))
	return nil
}
