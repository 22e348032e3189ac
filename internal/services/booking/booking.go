// Package booking содержит запись к врачу с защитой от дублей.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/metrics"
	"github.com/magabrotheeeer/aahar/internal/models"
)

var (
	// ErrDuplicateAppointment запись с тем же email, врачом, датой и временем уже есть.
	ErrDuplicateAppointment = errors.New("appointment already booked for this time slot")
	// ErrInvalidDate дата не в формате YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid appointment date")
)

const dateLayout = "2006-01-02"

// AppointmentRepository хранилище записей к врачу.
type AppointmentRepository interface {
	AppointmentExists(ctx context.Context, a models.Appointment) (bool, error)
	CreateAppointment(ctx context.Context, a models.Appointment) (*models.Appointment, error)
	ListAppointments(ctx context.Context, email string) ([]models.Appointment, error)
}

// NotificationPublisher отправляет уведомления в очередь.
type NotificationPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service записывает к врачу и отдаёт список записей.
type Service struct {
	repo      AppointmentRepository
	publisher NotificationPublisher
	log       *slog.Logger
}

// NewService создаёт Service. publisher может быть nil, тогда письма не отправляются.
func NewService(repo AppointmentRepository, publisher NotificationPublisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// Book проверяет, что слот ещё не занят этим пользователем, и создаёт запись.
// Проверка и вставка не атомарны: два одновременных запроса могут пройти оба.
func (s *Service) Book(ctx context.Context, req models.AppointmentRequest) (*models.Appointment, error) {
	const op = "booking.Book"

	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		metrics.RecordBooking("invalid")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidDate)
	}

	appt := models.Appointment{
		UserEmail:  entitlement.NormalizeEmail(req.UserEmail),
		DoctorID:   req.DoctorID,
		DoctorName: req.DoctorName,
		Date:       req.Date,
		Time:       req.Time,
		Type:       req.Type,
		Notes:      req.Notes,
	}

	exists, err := s.repo.AppointmentExists(ctx, appt)
	if err != nil {
		metrics.RecordBooking("error")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		metrics.RecordBooking("duplicate")
		s.log.Info("duplicate booking rejected",
			sl.Email(appt.UserEmail),
			slog.String("doctor_id", appt.DoctorID),
			slog.String("date", appt.Date),
			slog.String("time", appt.Time),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrDuplicateAppointment)
	}

	created, err := s.repo.CreateAppointment(ctx, appt)
	if err != nil {
		metrics.RecordBooking("error")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordBooking("created")
	s.log.Info("appointment booked", slog.Int64("id", created.ID), sl.Email(created.UserEmail))

	s.notify(ctx, created)
	return created, nil
}

// List возвращает записи пользователя по возрастанию даты и времени.
func (s *Service) List(ctx context.Context, email string) ([]models.Appointment, error) {
	const op = "booking.List"
	list, err := s.repo.ListAppointments(ctx, entitlement.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *Service) notify(ctx context.Context, appt *models.Appointment) {
	if s.publisher == nil {
		return
	}
	msg := models.Notification{
		ID:          uuid.NewString(),
		Kind:        models.NotificationBooking,
		Email:       appt.UserEmail,
		Appointment: appt,
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingKeyBooking, msg); err != nil {
		s.log.Warn("failed to publish booking notification", slog.Int64("id", appt.ID), sl.Err(err))
	}
}
