// Package provider держит разрешённый статус подписки для одного представления
// (вкладки клиента или SSE-соединения сервера) и перечитывает его при событиях
// синхронизации.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/aahar/internal/broadcast"
	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/models"
)

// ErrNoSession нет текущего пользователя.
var ErrNoSession = errors.New("no user session")

// DefaultSettleDelay задержка подтверждающего перечитывания после Upgrade.
const DefaultSettleDelay = 100 * time.Millisecond

// State стадия разрешения статуса.
type State int

const (
	StateLoading State = iota
	StateResolved
)

func (s State) String() string {
	if s == StateResolved {
		return "resolved"
	}
	return "loading"
}

// Snapshot состояние, видимое потребителям.
type Snapshot struct {
	State     State                    `json:"-"`
	Email     string                   `json:"email,omitempty"`
	IsPremium bool                     `json:"isPremium"`
	Details   *models.UserSubscription `json:"details,omitempty"`
}

// Entitlements операции Manager, которые нужны Provider.
type Entitlements interface {
	SetStatus(ctx context.Context, email string, isPremium bool, subType models.SubscriptionType) (*models.UserSubscription, error)
	GetStatus(ctx context.Context, email string) (bool, error)
	GetDetails(ctx context.Context, email string) (*models.UserSubscription, error)
}

// SessionSource возвращает текущего пользователя или nil.
type SessionSource interface {
	Session(ctx context.Context) (*models.CurrentUserSession, error)
}

// StaticSession сессия с фиксированным пользователем, например из JWT.
type StaticSession struct {
	Email string
	Name  string
}

func (s StaticSession) Session(_ context.Context) (*models.CurrentUserSession, error) {
	if s.Email == "" {
		return nil, nil
	}
	return &models.CurrentUserSession{
		Email:           s.Email,
		Name:            s.Name,
		IsAuthenticated: true,
	}, nil
}

// Option настраивает Provider.
type Option func(*Provider)

// WithSettleDelay задаёт задержку подтверждающего перечитывания.
func WithSettleDelay(d time.Duration) Option {
	return func(p *Provider) { p.settle = d }
}

// WithSubscribers добавляет внешние источники событий, например RedisChannel.
func WithSubscribers(subs ...broadcast.Subscriber) Option {
	return func(p *Provider) { p.remote = append(p.remote, subs...) }
}

// Provider хранит снимок статуса и обновляет его при изменениях.
type Provider struct {
	mgr      Entitlements
	sessions SessionSource
	bus      broadcast.Channel
	remote   []broadcast.Subscriber
	settle   time.Duration
	origin   string
	log      *slog.Logger

	mu       sync.RWMutex
	snap     Snapshot
	watchers map[int]chan Snapshot
	nextID   int
	timer    *time.Timer
	stopped  bool
}

// New создаёт Provider. bus это внутрипроцессная шина, в которую уходит
// subscription-changed и из которой Provider слушает события.
func New(mgr Entitlements, sessions SessionSource, bus broadcast.Channel, log *slog.Logger, opts ...Option) *Provider {
	p := &Provider{
		mgr:      mgr,
		sessions: sessions,
		bus:      bus,
		settle:   DefaultSettleDelay,
		origin:   uuid.NewString(),
		log:      log,
		snap:     Snapshot{State: StateLoading},
		watchers: make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot возвращает текущее состояние.
func (p *Provider) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// IsPremium true только в разрешённом состоянии с премиумом.
func (p *Provider) IsPremium() bool {
	s := p.Snapshot()
	return s.State == StateResolved && s.IsPremium
}

// Start разрешает статус и обрабатывает события до отмены ctx.
// Возвращается после первой загрузки, цикл событий работает в фоне.
func (p *Provider) Start(ctx context.Context) error {
	const op = "provider.Start"

	streams := make([]<-chan broadcast.Event, 0, len(p.remote)+1)
	cancels := make([]func(), 0, len(p.remote)+1)
	subs := append([]broadcast.Subscriber{p.bus}, p.remote...)
	for _, s := range subs {
		if s == nil {
			continue
		}
		ch, cancel, err := s.Subscribe(ctx)
		if err != nil {
			for _, c := range cancels {
				c()
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		streams = append(streams, ch)
		cancels = append(cancels, cancel)
	}

	if err := p.Refresh(ctx); err != nil {
		p.log.Warn("initial entitlement load failed", slog.String("op", op), sl.Err(err))
	}

	merged := merge(ctx, streams)
	go func() {
		defer func() {
			for _, c := range cancels {
				c()
			}
			p.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-merged:
				if !ok {
					return
				}
				if relevant(ev) {
					if err := p.Refresh(ctx); err != nil {
						p.log.Warn("entitlement refresh failed", slog.String("op", op), sl.Err(err))
					}
				}
			}
		}
	}()
	return nil
}

// Refresh перечитывает сессию и статус и публикует новый снимок.
// При ошибке хранилища статус сбрасывается в не-премиум.
func (p *Provider) Refresh(ctx context.Context) error {
	const op = "provider.Refresh"
	sess, err := p.sessions.Session(ctx)
	if err != nil {
		p.set(Snapshot{State: StateResolved})
		return fmt.Errorf("%s: %w", op, err)
	}
	if sess == nil || sess.Email == "" {
		p.set(Snapshot{State: StateResolved})
		return nil
	}

	email := entitlement.NormalizeEmail(sess.Email)
	premium, err := p.mgr.GetStatus(ctx, email)
	if err != nil {
		p.set(Snapshot{State: StateResolved, Email: email})
		return fmt.Errorf("%s: %w", op, err)
	}
	details, err := p.mgr.GetDetails(ctx, email)
	if err != nil {
		p.set(Snapshot{State: StateResolved, Email: email})
		return fmt.Errorf("%s: %w", op, err)
	}
	p.set(Snapshot{State: StateResolved, Email: email, IsPremium: premium, Details: details})
	return nil
}

// Upgrade оформляет подписку для текущего пользователя. Снимок обновляется
// сразу, подтверждающее перечитывание выполняется через settle-задержку.
func (p *Provider) Upgrade(ctx context.Context, subType models.SubscriptionType) (*models.UserSubscription, error) {
	return p.change(ctx, "provider.Upgrade", true, subType)
}

// Downgrade переводит текущего пользователя на free.
func (p *Provider) Downgrade(ctx context.Context) (*models.UserSubscription, error) {
	return p.change(ctx, "provider.Downgrade", false, models.SubscriptionFree)
}

func (p *Provider) change(ctx context.Context, op string, premium bool, subType models.SubscriptionType) (*models.UserSubscription, error) {
	sess, err := p.sessions.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sess == nil || sess.Email == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	email := entitlement.NormalizeEmail(sess.Email)

	rec, err := p.mgr.SetStatus(ctx, email, premium, subType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.set(Snapshot{State: StateResolved, Email: email, IsPremium: rec.IsPremium, Details: rec})

	if p.bus != nil {
		ev := broadcast.Event{Kind: broadcast.KindSubscriptionChanged, Key: entitlement.SubscriptionKey(email), Origin: p.origin}
		if err := p.bus.Publish(ctx, ev); err != nil {
			p.log.Warn("failed to publish subscription change", slog.String("op", op), sl.Err(err))
		}
	}
	p.scheduleRefresh()
	return rec, nil
}

// Watch возвращает поток снимков. Текущий снимок приходит первым.
// Канал закрывается вызовом возвращённой функции или остановкой Provider.
func (p *Provider) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 4)
	p.mu.Lock()
	if p.stopped {
		ch <- p.snap
		close(ch)
		p.mu.Unlock()
		return ch, func() {}
	}
	id := p.nextID
	p.nextID++
	p.watchers[id] = ch
	ch <- p.snap
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if _, ok := p.watchers[id]; ok {
				delete(p.watchers, id)
				close(ch)
			}
		})
	}
}

func (p *Provider) set(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = s
	for _, ch := range p.watchers {
		select {
		case ch <- s:
		default:
			// отстающий наблюдатель получает только последний снимок
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

func (p *Provider) scheduleRefresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.settle, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Refresh(ctx); err != nil {
			p.log.Warn("settle refresh failed", sl.Err(err))
		}
	})
}

// Close отменяет отложенное перечитывание и закрывает всех наблюдателей.
// Provider, запущенный через Start, закрывается сам при отмене контекста.
func (p *Provider) Close() {
	p.stopTimer()
	p.closeWatchers()
}

func (p *Provider) stopTimer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Provider) closeWatchers() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	for id, ch := range p.watchers {
		delete(p.watchers, id)
		close(ch)
	}
}

func relevant(ev broadcast.Event) bool {
	switch ev.Kind {
	case broadcast.KindSubscriptionChanged:
		return true
	case broadcast.KindStorage:
		return entitlement.InNamespace(ev.Key)
	}
	return false
}

func merge(ctx context.Context, streams []<-chan broadcast.Event) <-chan broadcast.Event {
	out := make(chan broadcast.Event)
	var wg sync.WaitGroup
	for _, s := range streams {
		wg.Add(1)
		go func(s <-chan broadcast.Event) {
			defer wg.Done()
			for ev := range s {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}(s)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
