package client

import (
	"errors"
	"sync"
	"time"
)

// DefaultMinInterval минимальная пауза между попытками отправки в одном диалоге.
const DefaultMinInterval = 2 * time.Second

var (
	// ErrInFlight предыдущая отправка ещё не завершилась.
	ErrInFlight = errors.New("submission in flight")
	// ErrAlreadySubmitted диалог уже успешно отправлен.
	ErrAlreadySubmitted = errors.New("already submitted")
	// ErrTooSoon повторная попытка раньше минимального интервала.
	ErrTooSoon = errors.New("submission attempted too soon")
)

// SubmissionState состояние отправки.
type SubmissionState int

const (
	StateIdle SubmissionState = iota
	StateSubmitting
	StateSubmitted
	StateFailed
)

func (s SubmissionState) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// SubmissionGuard не даёт одному диалогу отправить запрос больше одного раза.
// Переходы: Begin (Idle/Failed → Submitting), Succeed (→ Submitted),
// Fail (→ Failed), Reset (→ Idle).
type SubmissionGuard struct {
	mu          sync.Mutex
	state       SubmissionState
	lastBegin   time.Time
	minInterval time.Duration
	now         func() time.Time
}

// NewSubmissionGuard создаёт guard. minInterval <= 0 отключает паузу между попытками.
func NewSubmissionGuard(minInterval time.Duration) *SubmissionGuard {
	return &SubmissionGuard{minInterval: minInterval, now: time.Now}
}

// State текущее состояние.
func (g *SubmissionGuard) State() SubmissionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Begin переводит guard в Submitting или возвращает причину отказа.
func (g *SubmissionGuard) Begin() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case StateSubmitting:
		return ErrInFlight
	case StateSubmitted:
		return ErrAlreadySubmitted
	}
	now := g.now()
	if !g.lastBegin.IsZero() && now.Sub(g.lastBegin) < g.minInterval {
		return ErrTooSoon
	}
	g.lastBegin = now
	g.state = StateSubmitting
	return nil
}

// Succeed фиксирует успешную отправку.
func (g *SubmissionGuard) Succeed() {
	g.transition(StateSubmitted)
}

// Fail фиксирует ошибку, после паузы возможна новая попытка.
func (g *SubmissionGuard) Fail() {
	g.transition(StateFailed)
}

// Reset возвращает guard в Idle для нового диалога.
func (g *SubmissionGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateIdle
	g.lastBegin = time.Time{}
}

func (g *SubmissionGuard) transition(to SubmissionState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateSubmitting {
		g.state = to
	}
}
