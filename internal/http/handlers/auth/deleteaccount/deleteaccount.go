// Package deleteaccount реализует HTTP-обработчик удаления аккаунта.
package deleteaccount

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/aahar/internal/http/middlewarectx"
	"github.com/magabrotheeeer/aahar/internal/http/response"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/storage"
)

// Service удаляет аккаунты.
type Service interface {
	DeleteAccount(ctx context.Context, email string) error
}

// Handler обрабатывает DELETE /api/account.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удаление аккаунта
// @Description Удаляет пользователя, его избранное и статус подписки. Записи к врачу сохраняются.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /account [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.deleteaccount"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sess, ok := middlewarectx.SessionFromContext(r.Context())
	if !ok {
		response.JSON(w, r, http.StatusUnauthorized, response.Error("user identification missing"))
		return
	}

	err := h.service.DeleteAccount(r.Context(), sess.Email)
	if errors.Is(err, storage.ErrUserNotFound) {
		response.JSON(w, r, http.StatusNotFound, response.Error("user not found"))
		return
	}
	if err != nil {
		log.Error("failed to delete account", sl.Err(err))
		response.JSON(w, r, http.StatusInternalServerError, response.Error("failed to delete account"))
		return
	}
	response.JSON(w, r, http.StatusOK, response.OK("account deleted"))
}
