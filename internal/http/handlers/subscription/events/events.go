// Package events реализует поток изменений статуса подписки в формате
// Server-Sent Events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/aahar/internal/entitlement/provider"
	"github.com/magabrotheeeer/aahar/internal/http/middlewarectx"
	"github.com/magabrotheeeer/aahar/internal/http/response"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/metrics"
	"github.com/magabrotheeeer/aahar/internal/models"
)

// EventName имя SSE-события со снимком статуса.
const EventName = "entitlement"

const defaultHeartbeat = 25 * time.Second

// Event данные одного SSE-события.
type Event struct {
	State        string                   `json:"state"`
	Email        string                   `json:"email,omitempty"`
	IsPremium    bool                     `json:"isPremium"`
	Subscription *models.UserSubscription `json:"subscription,omitempty"`
}

// Service открывает поток снимков.
type Service interface {
	Watch(ctx context.Context, sess models.CurrentUserSession) (<-chan provider.Snapshot, func(), error)
}

// Handler обрабатывает GET /api/subscription/events.
type Handler struct {
	log       *slog.Logger
	service   Service
	heartbeat time.Duration
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, heartbeat: defaultHeartbeat}
}

// ServeHTTP godoc
// @Summary Поток изменений подписки
// @Description SSE: первым приходит текущий статус, затем каждое изменение.
// @Tags Subscription
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {object} Event
// @Failure 401 {object} response.ErrorResponse
// @Router /subscription/events [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.events"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sess, ok := middlewarectx.SessionFromContext(r.Context())
	if !ok {
		response.JSON(w, r, http.StatusUnauthorized, response.Error("user identification missing"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.JSON(w, r, http.StatusInternalServerError, response.Error("streaming unsupported"))
		return
	}

	snaps, stop, err := h.service.Watch(r.Context(), *sess)
	if err != nil {
		log.Error("failed to open subscription stream", sl.Err(err))
		response.JSON(w, r, http.StatusInternalServerError, response.Error("failed to open stream"))
		return
	}
	defer stop()

	// поток живёт дольше WriteTimeout сервера
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	metrics.EntitlementWatchers.Inc()
	defer metrics.EntitlementWatchers.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if err := writeEvent(w, snap); err != nil {
				log.Warn("failed to write event", sl.Err(err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, snap provider.Snapshot) error {
	data, err := json.Marshal(Event{
		State:        snap.State.String(),
		Email:        snap.Email,
		IsPremium:    snap.IsPremium,
		Subscription: snap.Details,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", EventName, data)
	return err
}
