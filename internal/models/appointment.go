package models

import "time"

// Appointment запись на приём к врачу.
type Appointment struct {
	ID         int64     `json:"id"`
	UserEmail  string    `json:"user_email"`
	DoctorID   string    `json:"doctor_id"`
	DoctorName string    `json:"doctor_name"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Type       string    `json:"type"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AppointmentRequest тело запроса на запись к врачу до валидации.
type AppointmentRequest struct {
	UserEmail  string `json:"user_email" validate:"required,email"`
	DoctorID   string `json:"doctor_id" validate:"required"`
	DoctorName string `json:"doctor_name" validate:"required"`
	Date       string `json:"date" validate:"required"`
	Time       string `json:"time" validate:"required"`
	Type       string `json:"type" validate:"required"`
	Notes      string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}
