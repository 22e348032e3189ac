// Package downgrade реализует HTTP-обработчик отключения премиума.
package downgrade

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
	"github.com/magabrotheeeer/aahar/internal/models"
)

// Response запись о подписке после отключения.
type Response struct {
	response.Response
	Subscription *models.UserSubscription `json:"subscription"`
}

// Service отключает премиум.
type Service interface {
	Downgrade(ctx context.Context, sess models.CurrentUserSession) (*models.UserSubscription, error)
}

// Handler обрабатывает POST /api/subscription/downgrade.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отключение премиума
// @Tags Subscription
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /subscription/downgrade [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.downgrade"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sess, ok := middlewarectx.SessionFromContext(r.Context())
	if !ok {
		response.JSON(w, r, http.StatusUnauthorized, response.Error("user identification missing"))
		return
	}

	rec, err := h.service.Downgrade(r.Context(), *sess)
	switch {
	case errors.Is(err, entitlement.ErrStorageUnavailable):
		log.Error("subscription storage unavailable", sl.Err(err))
		response.JSON(w, r, http.StatusServiceUnavailable, response.Error("subscription status is temporarily unavailable"))
		return
	case err != nil:
		log.Error("failed to downgrade", sl.Err(err))
		response.JSON(w, r, http.StatusInternalServerError, response.Error("failed to downgrade subscription"))
		return
	}

	response.JSON(w, r, http.StatusOK, Response{
		Response:     response.OK("Subscription downgraded to free"),
		Subscription: rec,
	})
}
