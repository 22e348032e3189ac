// Package subscription содержит серверные операции над статусом подписки:
// чтение, перепроверку, отключение и поток изменений для конкретного пользователя.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/aahar/internal/broadcast"
	"github.com/magabrotheeeer/aahar/internal/entitlement/provider"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/metrics"
	"github.com/magabrotheeeer/aahar/internal/models"
)

// Entitlements операции Manager, которые нужны сервису.
type Entitlements interface {
	provider.Entitlements
	Verify(ctx context.Context, email string) (bool, error)
}

// Status статус подписки пользователя.
type Status struct {
	IsPremium    bool                     `json:"isPremium"`
	Subscription *models.UserSubscription `json:"subscription"`
}

// Service реализует операции над подпиской поверх Manager и шины событий.
type Service struct {
	mgr    Entitlements
	bus    broadcast.Channel
	remote []broadcast.Subscriber
	settle time.Duration
	log    *slog.Logger
}

// NewService создаёт Service. bus доставляет события внутри процесса,
// remote приносит изменения хранилища от других реплик.
func NewService(mgr Entitlements, bus broadcast.Channel, settle time.Duration, log *slog.Logger, remote ...broadcast.Subscriber) *Service {
	return &Service{
		mgr:    mgr,
		bus:    bus,
		remote: remote,
		settle: settle,
		log:    log,
	}
}

// Status перечитывает статус и подробности подписки.
func (s *Service) Status(ctx context.Context, email string) (*Status, error) {
	const op = "subscription.Status"
	premium, err := s.mgr.GetStatus(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	details, err := s.mgr.GetDetails(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Status{IsPremium: premium, Subscription: details}, nil
}

// Verify перепроверяет подписку и отмечает время проверки.
func (s *Service) Verify(ctx context.Context, email string) (*Status, error) {
	const op = "subscription.Verify"
	premium, err := s.mgr.Verify(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	details, err := s.mgr.GetDetails(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Status{IsPremium: premium, Subscription: details}, nil
}

// Downgrade переводит пользователя на free и оповещает открытые потоки.
func (s *Service) Downgrade(ctx context.Context, sess models.CurrentUserSession) (*models.UserSubscription, error) {
	const op = "subscription.Downgrade"
	p := s.newProvider(sess)
	defer p.Close()

	rec, err := p.Downgrade(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordSubscriptionChange(string(rec.SubscriptionType), rec.IsPremium)
	s.log.Info("subscription downgraded", sl.Email(rec.Email))
	return rec, nil
}

// Watch открывает поток снимков статуса пользователя. Поток закрывается
// при отмене ctx или вызове возвращённой функции.
func (s *Service) Watch(ctx context.Context, sess models.CurrentUserSession) (<-chan provider.Snapshot, func(), error) {
	const op = "subscription.Watch"
	ctx, cancel := context.WithCancel(ctx)
	p := s.newProvider(sess)
	if err := p.Start(ctx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, stop := p.Watch()
	return ch, func() {
		stop()
		cancel()
	}, nil
}

func (s *Service) newProvider(sess models.CurrentUserSession) *provider.Provider {
	return provider.New(s.mgr, provider.StaticSession{Email: sess.Email, Name: sess.Name}, s.bus, s.log,
		provider.WithSettleDelay(s.settle),
		provider.WithSubscribers(s.remote...),
	)
}
