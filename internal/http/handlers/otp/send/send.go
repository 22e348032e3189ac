// Package send реализует HTTP-обработчик отправки одноразового кода.
package send

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/aahar/internal/http/response"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/services/otp"
)

// Request тело запроса.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// Service выдаёт коды.
type Service interface {
	Send(ctx context.Context, email string) error
}

// Handler обрабатывает POST /api/send-otp.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отправка кода подтверждения
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body Request true "Email"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse "Слишком частые запросы"
// @Failure 500 {object} response.ErrorResponse
// @Router /send-otp [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.otp.send"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.JSON(w, r, http.StatusBadRequest, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.JSON(w, r, http.StatusBadRequest, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	err := h.service.Send(r.Context(), req.Email)
	switch {
	case errors.Is(err, otp.ErrRateLimited):
		response.JSON(w, r, http.StatusTooManyRequests, response.Error("too many OTP requests, try again later"))
		return
	case err != nil:
		log.Error("failed to send otp", sl.Err(err))
		response.JSON(w, r, http.StatusInternalServerError, response.Error("failed to send OTP"))
		return
	}

	response.JSON(w, r, http.StatusOK, response.OK("OTP sent to your email"))
}
