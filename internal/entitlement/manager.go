package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/aahar/internal/broadcast"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/models"
)

// Manager реализует операции над статусом подписки поверх Store.
// Каждая запись перезаписывает состояние целиком, последняя запись побеждает.
type Manager struct {
	store    Store
	sessions *SessionStore
	notifier broadcast.Publisher
	mirror   bool
	now      func() time.Time
	log      *slog.Logger
}

// Option настраивает Manager.
type Option func(*Manager)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithNotifier задаёт канал, в который уходят уведомления об изменении ключей.
func WithNotifier(p broadcast.Publisher) Option {
	return func(m *Manager) { m.notifier = p }
}

// WithSessionMirror включает зеркалирование премиума в локальную сессию (KeyUser).
// Нужно только клиентской копии, где в хранилище живёт одна сессия.
func WithSessionMirror() Option {
	return func(m *Manager) { m.mirror = true }
}

// NewManager создаёт Manager.
func NewManager(store Store, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		sessions: NewSessionStore(store),
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Sessions возвращает хранилище сессии, которое зеркалит Manager.
func (m *Manager) Sessions() *SessionStore {
	return m.sessions
}

// SetStatus записывает новую запись о подписке и флаг. Если isPremium=false,
// тип принудительно становится free, а срок не задаётся.
func (m *Manager) SetStatus(ctx context.Context, email string, isPremium bool, subType models.SubscriptionType) (*models.UserSubscription, error) {
	const op = "entitlement.SetStatus"
	email = NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}
	if !isPremium {
		subType = models.SubscriptionFree
	}
	if !subType.Valid() {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownSubscriptionType, subType)
	}

	now := m.now()
	rec := models.UserSubscription{
		Email:            email,
		IsPremium:        isPremium,
		SubscriptionType: subType,
		ActivatedAt:      now,
		LastVerified:     now,
	}
	if isPremium {
		rec.ExpiresAt = subType.ExpiresAt(now)
	}

	if err := m.writeRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	flag := strconv.FormatBool(isPremium)
	if err := m.store.Write(ctx, PremiumKey(email), flag); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
	m.notify(ctx, PremiumKey(email), flag)

	if err := m.mirrorSession(ctx, email, isPremium); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.log.Info("subscription status set",
		slog.String("op", op),
		sl.Email(email),
		slog.Bool("is_premium", isPremium),
		slog.String("type", string(subType)),
	)
	return &rec, nil
}

// GetStatus возвращает true только при флаге "true", записи с isPremium=true
// и неистёкшем сроке. Повреждённая запись даёт false без ошибки.
func (m *Manager) GetStatus(ctx context.Context, email string) (bool, error) {
	const op = "entitlement.GetStatus"
	email = NormalizeEmail(email)
	if email == "" {
		return false, nil
	}

	flag, found, err := m.store.Read(ctx, PremiumKey(email))
	if err != nil {
		return false, fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
	if !found || flag != "true" {
		return false, nil
	}

	rec, err := m.readRecord(ctx, email)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rec.ActiveAt(m.now()), nil
}

// Verify перечитывает запись, обновляет LastVerified и сохраняет её.
// Возвращает то же значение, что и GetStatus. Истёкшую подписку не отзывает.
func (m *Manager) Verify(ctx context.Context, email string) (bool, error) {
	const op = "entitlement.Verify"
	email = NormalizeEmail(email)
	if email == "" {
		return false, nil
	}

	rec, err := m.readRecord(ctx, email)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if rec == nil {
		return false, nil
	}

	rec.LastVerified = m.now()
	if err := m.writeRecord(ctx, *rec); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return m.GetStatus(ctx, email)
}

// GetDetails возвращает подробную запись или nil, если её нет или она повреждена.
func (m *Manager) GetDetails(ctx context.Context, email string) (*models.UserSubscription, error) {
	const op = "entitlement.GetDetails"
	email = NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	rec, err := m.readRecord(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// Clear удаляет флаг и запись и обнуляет премиум в сессии.
func (m *Manager) Clear(ctx context.Context, email string) error {
	const op = "entitlement.Clear"
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if err := m.store.Delete(ctx, PremiumKey(email), SubscriptionKey(email)); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
	m.notify(ctx, PremiumKey(email), "")
	m.notify(ctx, SubscriptionKey(email), "")

	if err := m.mirrorSession(ctx, email, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.log.Info("subscription cleared", slog.String("op", op), sl.Email(email))
	return nil
}

// readRecord возвращает запись, nil при её отсутствии или повреждении.
func (m *Manager) readRecord(ctx context.Context, email string) (*models.UserSubscription, error) {
	raw, found, err := m.store.Read(ctx, SubscriptionKey(email))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if !found {
		return nil, nil
	}
	var rec models.UserSubscription
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		m.log.Warn("corrupted subscription record, treating as absent", sl.Email(email), sl.Err(err))
		return nil, nil
	}
	return &rec, nil
}

func (m *Manager) writeRecord(ctx context.Context, rec models.UserSubscription) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := SubscriptionKey(rec.Email)
	if err := m.store.Write(ctx, key, string(payload)); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	m.notify(ctx, key, string(payload))
	return nil
}

// mirrorSession обновляет премиум в сессии, если она принадлежит email.
func (m *Manager) mirrorSession(ctx context.Context, email string, isPremium bool) error {
	if !m.mirror {
		return nil
	}
	sess, err := m.sessions.Load(ctx)
	if err != nil {
		return err
	}
	if sess == nil || NormalizeEmail(sess.Email) != email || sess.IsPremium == isPremium {
		return nil
	}
	sess.IsPremium = isPremium
	if err := m.sessions.Save(ctx, *sess); err != nil {
		return err
	}
	payload, _ := json.Marshal(sess)
	m.notify(ctx, KeyUser, string(payload))
	return nil
}

func (m *Manager) notify(ctx context.Context, key, value string) {
	if m.notifier == nil {
		return
	}
	ev := broadcast.Event{Kind: broadcast.KindStorage, Key: key, Value: value}
	if err := m.notifier.Publish(ctx, ev); err != nil {
		m.log.Warn("failed to publish storage change", slog.String("key", key), sl.Err(err))
	}
}
