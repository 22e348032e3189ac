// Package status реализует HTTP-обработчики чтения и перепроверки статуса подписки.
package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/http/middlewarectx"
	"github.com/magabrotheeeer/aahar/internal/http/response"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/services/subscription"
)

// Response статус подписки.
type Response struct {
	response.Response
	subscription.Status
}

// Service операции над подпиской.
type Service interface {
	Status(ctx context.Context, email string) (*subscription.Status, error)
	Verify(ctx context.Context, email string) (*subscription.Status, error)
}

// Handler обрабатывает GET /api/subscription и POST /api/subscription/verify.
type Handler struct {
	log     *slog.Logger
	service Service
	verify  bool
}

// New создаёт обработчик чтения статуса.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// NewVerify создаёт обработчик перепроверки статуса.
func NewVerify(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, verify: true}
}

// ServeHTTP godoc
// @Summary Статус подписки
// @Description Перечитывает статус из серверного хранилища. POST /subscription/verify дополнительно отмечает время проверки.
// @Tags Subscription
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse "Хранилище статусов недоступно"
// @Router /subscription [get]
// @Router /subscription/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sess, ok := middlewarectx.SessionFromContext(r.Context())
	if !ok {
		response.JSON(w, r, http.StatusUnauthorized, response.Error("user identification missing"))
		return
	}

	read := h.service.Status
	if h.verify {
		read = h.service.Verify
	}
	st, err := read(r.Context(), sess.Email)
	switch {
	case errors.Is(err, entitlement.ErrStorageUnavailable):
		log.Error("subscription storage unavailable", sl.Err(err))
		response.JSON(w, r, http.StatusServiceUnavailable, response.Error("subscription status is temporarily unavailable"))
		return
	case err != nil:
		log.Error("failed to read subscription", sl.Err(err))
		response.JSON(w, r, http.StatusInternalServerError, response.Error("internal service error"))
		return
	}

	response.JSON(w, r, http.StatusOK, Response{Response: response.OK(""), Status: *st})
}
