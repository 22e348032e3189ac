// Package broadcast реализует канал синхронизации изменений статуса подписки
// между несколькими представлениями одной сессии. Hub доставляет события внутри
// процесса, RedisChannel доставляет их между процессами через Redis Pub/Sub.
//
// Доставка асинхронная и без гарантий: медленный подписчик теряет события,
// а не блокирует отправителя.
package broadcast

import (
	"context"
	"sync"
)

// Kind тип события синхронизации.
type Kind string

const (
	// KindStorage изменение значения в хранилище по ключу Key.
	KindStorage Kind = "storage"
	// KindSubscriptionChanged внутреннее событие "подписка изменилась".
	KindSubscriptionChanged Kind = "subscription-changed"
)

// Event событие синхронизации.
type Event struct {
	Kind   Kind   `json:"kind"`
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`
	Origin string `json:"origin,omitempty"`
}

// Publisher отправляет события подписчикам.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber выдаёт поток событий. Возвращаемая функция отменяет подписку
// и закрывает канал.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}

// Channel объединяет отправку и подписку.
type Channel interface {
	Publisher
	Subscriber
}

const defaultBuffer = 16

// Hub рассылает события всем подписчикам внутри процесса.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
}

// NewHub создаёт Hub с буфером по умолчанию на каждого подписчика.
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[int]chan Event),
		buffer: defaultBuffer,
	}
}

// Publish рассылает событие, не дожидаясь подписчиков.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe регистрирует нового подписчика. Подписка снимается вызовом
// возвращённой функции или по отмене ctx.
func (h *Hub) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.buffer)
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel, nil
}
