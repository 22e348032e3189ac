// Package premium реализует HTTP-обработчики премиальных справочников.
// Доступ к ним ограничивает PremiumMiddleware.
package premium

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/aahar/internal/content"
	"github.com/magabrotheeeer/aahar/internal/http/response"
)

// DoctorsResponse список врачей.
type DoctorsResponse struct {
	response.Response
	Doctors []content.Doctor `json:"doctors"`
}

// DoctorResponse карточка врача.
type DoctorResponse struct {
	response.Response
	Doctor content.Doctor `json:"doctor"`
}

// TrackerResponse трекер срока.
type TrackerResponse struct {
	response.Response
	Tracker *content.DeliveryTracker `json:"tracker"`
}

// Handler отдаёт справочники.
type Handler struct {
	log *slog.Logger
	now func() time.Time
}

// New создаёт Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log, now: time.Now}
}

// Doctors godoc
// @Summary Каталог врачей
// @Tags Content
// @Produce json
// @Security BearerAuth
// @Param specialty query string false "Специальность"
// @Success 200 {object} DoctorsResponse
// @Failure 403 {object} response.ErrorResponse "Нужен премиум"
// @Router /doctors [get]
func (h *Handler) Doctors(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, DoctorsResponse{
		Response: response.OK(""),
		Doctors:  content.Doctors(r.URL.Query().Get("specialty")),
	})
}

// Doctor godoc
// @Summary Карточка врача
// @Tags Content
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID врача"
// @Success 200 {object} DoctorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /doctors/{id} [get]
func (h *Handler) Doctor(w http.ResponseWriter, r *http.Request) {
	d, err := content.DoctorByID(chi.URLParam(r, "id"))
	if errors.Is(err, content.ErrDoctorNotFound) {
		response.JSON(w, r, http.StatusNotFound, response.Error("doctor not found"))
		return
	}
	response.JSON(w, r, http.StatusOK, DoctorResponse{Response: response.OK(""), Doctor: d})
}

// Tracker godoc
// @Summary Трекер срока родов
// @Tags Content
// @Produce json
// @Security BearerAuth
// @Param due_date query string true "Предполагаемая дата родов, YYYY-MM-DD"
// @Success 200 {object} TrackerResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /delivery-tracker [get]
func (h *Handler) Tracker(w http.ResponseWriter, r *http.Request) {
	t, err := content.Track(r.URL.Query().Get("due_date"), h.now())
	switch {
	case errors.Is(err, content.ErrInvalidDueDate):
		response.JSON(w, r, http.StatusBadRequest, response.Error("due_date must be in YYYY-MM-DD format"))
		return
	case errors.Is(err, content.ErrDueDateOutOfRange):
		response.JSON(w, r, http.StatusBadRequest, response.Error("due_date is out of range"))
		return
	}
	response.JSON(w, r, http.StatusOK, TrackerResponse{Response: response.OK(""), Tracker: t})
}
