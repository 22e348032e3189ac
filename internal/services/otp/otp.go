// Package otp выдаёт и проверяет одноразовые коды, которыми подтверждается
// переход на премиум.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/aahar/internal/config"
	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/lib/password"
	"github.com/magabrotheeeer/aahar/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/metrics"
	"github.com/magabrotheeeer/aahar/internal/models"
)

var (
	// ErrCodeNotFound код не отправлялся, истёк или уже использован.
	ErrCodeNotFound = errors.New("otp not found or expired")
	// ErrInvalidCode код не совпал.
	ErrInvalidCode = errors.New("invalid otp")
	// ErrTooManyAttempts исчерпаны попытки ввода, код сожжён.
	ErrTooManyAttempts = errors.New("too many otp attempts")
	// ErrRateLimited слишком частая отправка кодов на один email.
	ErrRateLimited = errors.New("too many otp requests")
	// ErrInvalidPlan тариф не является платным.
	ErrInvalidPlan = errors.New("subscription type is not a paid plan")
)

const codeDigits = 6

// CodeStore хранилище кодов и счётчиков.
type CodeStore interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// Entitlements записывает статус подписки.
type Entitlements interface {
	SetStatus(ctx context.Context, email string, isPremium bool, subType models.SubscriptionType) (*models.UserSubscription, error)
}

// NotificationPublisher отправляет уведомления в очередь.
type NotificationPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

type codeRecord struct {
	Hash     string    `json:"hash"`
	IssuedAt time.Time `json:"issued_at"`
}

// Service выдаёт и проверяет коды.
type Service struct {
	codes        CodeStore
	entitlements Entitlements
	publisher    NotificationPublisher
	cfg          config.OTP
	generate     func() (string, error)
	log          *slog.Logger
}

// Option настраивает Service.
type Option func(*Service)

// WithGenerator подменяет генератор кодов.
func WithGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.generate = gen }
}

// NewService создаёт Service.
func NewService(codes CodeStore, entitlements Entitlements, publisher NotificationPublisher, cfg config.OTP, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		codes:        codes,
		entitlements: entitlements,
		publisher:    publisher,
		cfg:          cfg,
		generate:     GenerateCode,
		log:          log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateCode возвращает случайный код из шести цифр.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func codeKey(email string) string     { return "otp:code:" + email }
func attemptsKey(email string) string { return "otp:attempts:" + email }
func sendKey(email string) string     { return "otp:send:" + email }

// Send выдаёт новый код и ставит письмо в очередь. Предыдущий код
// и счётчик попыток сбрасываются.
func (s *Service) Send(ctx context.Context, email string) error {
	const op = "otp.Send"
	email = entitlement.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%s: %w", op, entitlement.ErrInvalidEmail)
	}

	ok, err := s.codes.Allow(ctx, sendKey(email), s.cfg.SendLimit, s.cfg.SendLimitRange)
	if err != nil {
		metrics.RecordOTP("send", "error")
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		metrics.RecordOTP("send", "rate_limited")
		return fmt.Errorf("%s: %w", op, ErrRateLimited)
	}

	code, err := s.generate()
	if err != nil {
		metrics.RecordOTP("send", "error")
		return fmt.Errorf("%s: %w", op, err)
	}
	hash, err := password.GetHash(code)
	if err != nil {
		metrics.RecordOTP("send", "error")
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.codes.Set(ctx, codeKey(email), codeRecord{Hash: hash, IssuedAt: time.Now().UTC()}, s.cfg.OTPTTL); err != nil {
		metrics.RecordOTP("send", "error")
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.codes.Invalidate(ctx, attemptsKey(email)); err != nil {
		s.log.Warn("failed to reset otp attempts", sl.Email(email), sl.Err(err))
	}

	msg := models.Notification{
		ID:    uuid.NewString(),
		Kind:  models.NotificationOTP,
		Email: email,
		OTP:   code,
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingKeyOTP, msg); err != nil {
		metrics.RecordOTP("send", "error")
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.RecordOTP("send", "success")
	s.log.Info("otp issued", sl.Email(email))
	return nil
}

// Verify проверяет код и при совпадении активирует тариф subType.
// После MaxAttempts попыток код удаляется.
func (s *Service) Verify(ctx context.Context, email, code string, subType models.SubscriptionType) (*models.UserSubscription, error) {
	const op = "otp.Verify"
	email = entitlement.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%s: %w", op, entitlement.ErrInvalidEmail)
	}
	if !subType.Paid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPlan)
	}

	var rec codeRecord
	found, err := s.codes.Get(ctx, codeKey(email), &rec)
	if err != nil {
		metrics.RecordOTP("verify", "error")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		metrics.RecordOTP("verify", "not_found")
		return nil, fmt.Errorf("%s: %w", op, ErrCodeNotFound)
	}

	ok, err := s.codes.Allow(ctx, attemptsKey(email), int64(s.cfg.MaxAttempts), s.cfg.OTPTTL)
	if err != nil {
		metrics.RecordOTP("verify", "error")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		s.burn(ctx, email)
		metrics.RecordOTP("verify", "exhausted")
		s.log.Warn("otp burned after too many attempts", sl.Email(email))
		return nil, fmt.Errorf("%s: %w", op, ErrTooManyAttempts)
	}

	if err := password.CompareHash(rec.Hash, code); err != nil {
		metrics.RecordOTP("verify", "invalid")
		if errors.Is(err, password.ErrMismatch) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCode)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// код сгорает только после записи статуса, иначе повтор после сбоя хранилища невозможен
	sub, err := s.entitlements.SetStatus(ctx, email, true, subType)
	if err != nil {
		metrics.RecordOTP("verify", "error")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.burn(ctx, email)

	metrics.RecordOTP("verify", "success")
	metrics.RecordSubscriptionChange(string(sub.SubscriptionType), sub.IsPremium)
	s.log.Info("otp verified, subscription activated",
		sl.Email(email),
		slog.String("type", string(sub.SubscriptionType)),
	)
	return sub, nil
}

func (s *Service) burn(ctx context.Context, email string) {
	for _, key := range []string{codeKey(email), attemptsKey(email)} {
		if err := s.codes.Invalidate(ctx, key); err != nil {
			s.log.Warn("failed to delete otp key", slog.String("key", key), sl.Err(err))
		}
	}
}
