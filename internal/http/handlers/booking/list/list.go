// Package list реализует HTTP-обработчик списка записей пользователя.
package list

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/aahar/internal/http/response"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/models"
)

// Request тело запроса.
type Request struct {
	UserEmail string `json:"user_email" validate:"required,email"`
}

// Response список записей по возрастанию даты.
type Response struct {
	response.Response
	Appointments []models.Appointment `json:"appointments"`
}

// Service бизнес-логика записей.
type Service interface {
	List(ctx context.Context, email string) ([]models.Appointment, error)
}

// Handler обрабатывает POST /api/get-appointments.
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
// @Summary Список записей к врачу
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body Request true "Email пользователя"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /get-appointments [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.list"

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

	appts, err := h.service.List(r.Context(), req.UserEmail)
	if err != nil {
		log.Error("failed to list appointments", sl.Err(err))
		response.JSON(w, r, http.StatusInternalServerError, response.Error("failed to fetch appointments"))
		return
	}
	if appts == nil {
		appts = []models.Appointment{}
	}

	response.JSON(w, r, http.StatusOK, Response{
		Response:     response.OK(""),
		Appointments: appts,
	})
}
