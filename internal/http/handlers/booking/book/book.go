// Package book реализует HTTP-обработчик записи к врачу.
package book

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
	"github.com/magabrotheeeer/aahar/internal/models"
	"github.com/magabrotheeeer/aahar/internal/services/booking"
)

// MsgDuplicate ответ на повторную запись в тот же слот.
const MsgDuplicate = "You already have an appointment with this doctor at this time"

// Service бизнес-логика записи.
type Service interface {
	Book(ctx context.Context, req models.AppointmentRequest) (*models.Appointment, error)
}

// Response ответ на успешную запись.
type Response struct {
	response.Response
	Appointment *models.Appointment `json:"appointment"`
}

// Handler обрабатывает POST /api/book-appointment.
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
// @Summary Запись к врачу
// @Description Создаёт запись, если у пользователя ещё нет записи к этому врачу на ту же дату и время.
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body models.AppointmentRequest true "Данные записи"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Не заполнены поля или запись уже существует"
// @Failure 500 {object} response.ErrorResponse "Ошибка сохранения"
// @Router /book-appointment [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.book"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.JSON(w, r, http.StatusBadRequest, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		response.JSON(w, r, http.StatusBadRequest, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	appt, err := h.service.Book(r.Context(), req)
	switch {
	case errors.Is(err, booking.ErrDuplicateAppointment):
		response.JSON(w, r, http.StatusBadRequest, response.Error(MsgDuplicate))
		return
	case errors.Is(err, booking.ErrInvalidDate):
		response.JSON(w, r, http.StatusBadRequest, response.Error("date must be in YYYY-MM-DD format"))
		return
	case err != nil:
		log.Error("failed to book appointment", sl.Err(err))
		response.JSON(w, r, http.StatusInternalServerError, response.Error("failed to book appointment"))
		return
	}

	log.Info("appointment booked", slog.Int64("id", appt.ID))
	response.JSON(w, r, http.StatusOK, Response{
		Response:    response.OK("Appointment booked successfully"),
		Appointment: appt,
	})
}
