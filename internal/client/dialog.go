package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/models"
)

// Booker отправляет запись к врачу.
type Booker interface {
	BookAppointment(ctx context.Context, req models.AppointmentRequest) (*models.Appointment, error)
}

// BookingDialog диалог записи к врачу. Пока диалог открыт, запрос уходит не
// больше одного раза. Защита только клиентская: другая вкладка или повтор
// запроса сетью создадут дубль, его отсекает проверка на сервере.
type BookingDialog struct {
	booker Booker
	guard  *SubmissionGuard
	log    *slog.Logger
}

// NewBookingDialog создаёт диалог с минимальным интервалом minInterval между попытками.
func NewBookingDialog(booker Booker, minInterval time.Duration, log *slog.Logger) *BookingDialog {
	return &BookingDialog{
		booker: booker,
		guard:  NewSubmissionGuard(minInterval),
		log:    log,
	}
}

// Open начинает новый диалог.
func (d *BookingDialog) Open() {
	d.guard.Reset()
}

// State состояние отправки.
func (d *BookingDialog) State() SubmissionState {
	return d.guard.State()
}

// Submit отправляет запись. Отклонённая guard-ом попытка возвращает
// ErrInFlight, ErrAlreadySubmitted или ErrTooSoon без запроса к серверу.
func (d *BookingDialog) Submit(ctx context.Context, req models.AppointmentRequest) (*models.Appointment, error) {
	const op = "client.BookingDialog.Submit"
	if err := d.guard.Begin(); err != nil {
		d.log.Debug("booking submission rejected", slog.String("op", op), sl.Err(err))
		return nil, err
	}

	appt, err := d.booker.BookAppointment(ctx, req)
	if err != nil {
		d.guard.Fail()
		d.log.Warn("booking failed", slog.String("op", op), sl.Err(err))
		return nil, err
	}
	d.guard.Succeed()
	return appt, nil
}
