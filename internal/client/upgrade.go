package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/entitlement/provider"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/models"
)

// OTPAPI серверная часть подтверждения по коду.
type OTPAPI interface {
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string, subType models.SubscriptionType) (*models.UserSubscription, error)
}

// LocalEntitlements локальная копия статуса подписки, обычно provider.Provider
// поверх MemoryStore.
type LocalEntitlements interface {
	Upgrade(ctx context.Context, subType models.SubscriptionType) (*models.UserSubscription, error)
}

// Upgrader подключает премиум: код проверяет сервер, результат повторяется в
// локальном кэше, если локальная сессия принадлежит тому же email.
// Локальная копия не авторитетна, её ошибки только логируются.
type Upgrader struct {
	api      OTPAPI
	local    LocalEntitlements
	sessions provider.SessionSource
	log      *slog.Logger
}

// NewUpgrader создаёт Upgrader. При local или sessions равном nil локальная копия не обновляется.
func NewUpgrader(api OTPAPI, local LocalEntitlements, sessions provider.SessionSource, log *slog.Logger) *Upgrader {
	return &Upgrader{api: api, local: local, sessions: sessions, log: log}
}

// RequestCode отправляет код на email.
func (u *Upgrader) RequestCode(ctx context.Context, email string) error {
	const op = "client.Upgrader.RequestCode"
	if err := u.api.SendOTP(ctx, email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Confirm проверяет код и возвращает запись о подписке с сервера.
func (u *Upgrader) Confirm(ctx context.Context, email, code string, subType models.SubscriptionType) (*models.UserSubscription, error) {
	const op = "client.Upgrader.Confirm"
	rec, err := u.api.VerifyOTP(ctx, email, code, subType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.mirror(ctx, op, email, subType)
	return rec, nil
}

func (u *Upgrader) mirror(ctx context.Context, op, email string, subType models.SubscriptionType) {
	if u.local == nil || u.sessions == nil {
		return
	}
	log := u.log.With(slog.String("op", op), sl.Email(email))

	sess, err := u.sessions.Session(ctx)
	if err != nil {
		log.Warn("failed to load local session, skip mirroring upgrade", sl.Err(err))
		return
	}
	if sess == nil || sess.Email == "" {
		log.Info("no local session, skip mirroring upgrade")
		return
	}
	if entitlement.NormalizeEmail(sess.Email) != entitlement.NormalizeEmail(email) {
		log.Info("local session belongs to another user, skip mirroring upgrade")
		return
	}

	if _, err := u.local.Upgrade(ctx, subType); err != nil {
		if errors.Is(err, provider.ErrNoSession) {
			log.Info("no local session, skip mirroring upgrade")
			return
		}
		log.Warn("failed to mirror upgrade locally", sl.Err(err))
	}
}
