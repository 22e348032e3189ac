// Package verify реализует HTTP-обработчик проверки кода и активации премиума.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/http/response"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/models"
	"github.com/magabrotheeeer/aahar/internal/services/otp"
)

// Request тело запроса.
type Request struct {
	Email            string                  `json:"email" validate:"required,email"`
	OTP              string                  `json:"otp" validate:"required,len=6,numeric"`
	SubscriptionType models.SubscriptionType `json:"subscriptionType" validate:"required"`
}

// Response ответ с активированной подпиской.
type Response struct {
	response.Response
	Subscription *models.UserSubscription `json:"subscription"`
}

// Service проверяет коды.
type Service interface {
	Verify(ctx context.Context, email, code string, subType models.SubscriptionType) (*models.UserSubscription, error)
}

// Handler обрабатывает POST /api/verify-otp.
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
// @Summary Проверка кода и активация премиума
// @Description При совпадении кода записывает подписку в серверное хранилище статусов.
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body Request true "Email, код и тариф"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Неверный или просроченный код"
// @Failure 429 {object} response.ErrorResponse "Попытки исчерпаны"
// @Failure 503 {object} response.ErrorResponse "Хранилище статусов недоступно"
// @Router /verify-otp [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.otp.verify"

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

	sub, err := h.service.Verify(r.Context(), req.Email, req.OTP, req.SubscriptionType)
	if err != nil {
		status, msg := mapError(err)
		if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
			log.Error("failed to verify otp", sl.Err(err))
		}
		response.JSON(w, r, status, response.Error(msg))
		return
	}

	log.Info("subscription activated", sl.Email(sub.Email), slog.String("type", string(sub.SubscriptionType)))
	response.JSON(w, r, http.StatusOK, Response{
		Response:     response.OK("Subscription activated"),
		Subscription: sub,
	})
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, otp.ErrInvalidPlan):
		return http.StatusBadRequest, "unknown subscription type"
	case errors.Is(err, otp.ErrCodeNotFound):
		return http.StatusBadRequest, "OTP expired or was not requested"
	case errors.Is(err, otp.ErrInvalidCode):
		return http.StatusBadRequest, "Invalid OTP"
	case errors.Is(err, otp.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too many attempts, request a new OTP"
	case errors.Is(err, entitlement.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "subscription storage is temporarily unavailable"
	default:
		return http.StatusInternalServerError, "failed to verify OTP"
	}
}
