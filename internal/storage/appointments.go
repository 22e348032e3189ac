package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/aahar/internal/models"
)

// AppointmentExists проверяет, есть ли запись с тем же email, врачом, датой и временем.
func (s *Storage) AppointmentExists(ctx context.Context, a models.Appointment) (bool, error) {
	const op = "storage.AppointmentExists"

	query := `SELECT EXISTS (
				SELECT 1 FROM appointments
				WHERE user_email = $1 AND doctor_id = $2
				  AND appointment_date = $3 AND appointment_time = $4
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, a.UserEmail, a.DoctorID, a.Date, a.Time).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CreateAppointment сохраняет запись и возвращает её с ID и временем создания.
func (s *Storage) CreateAppointment(ctx context.Context, a models.Appointment) (*models.Appointment, error) {
	const op = "storage.CreateAppointment"

	query := `INSERT INTO appointments (user_email, doctor_id, doctor_name,
				appointment_date, appointment_time, type, notes)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id, created_at`
	err := s.DB.QueryRowContext(ctx, query,
		a.UserEmail, a.DoctorID, a.DoctorName, a.Date, a.Time, a.Type, a.Notes,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &a, nil
}

// ListAppointments возвращает записи пользователя по возрастанию даты и времени.
func (s *Storage) ListAppointments(ctx context.Context, email string) ([]models.Appointment, error) {
	const op = "storage.ListAppointments"

	query := `SELECT id, user_email, doctor_id, doctor_name,
				to_char(appointment_date, 'YYYY-MM-DD'), appointment_time, type, notes, created_at
			  FROM appointments
			  WHERE user_email = $1
			  ORDER BY appointment_date, appointment_time, id`
	rows, err := s.DB.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]models.Appointment, 0)
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.ID, &a.UserEmail, &a.DoctorID, &a.DoctorName,
			&a.Date, &a.Time, &a.Type, &a.Notes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
