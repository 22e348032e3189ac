package models

// NotificationKind тип письма, которое должен отправить notification-sender.
type NotificationKind string

const (
	// NotificationOTP письмо с кодом подтверждения.
	NotificationOTP NotificationKind = "otp"
	// NotificationBooking подтверждение записи к врачу.
	NotificationBooking NotificationKind = "booking"
)

// Notification сообщение в очереди уведомлений.
type Notification struct {
	ID          string           `json:"id"`
	Kind        NotificationKind `json:"kind"`
	Email       string           `json:"email"`
	OTP         string           `json:"otp,omitempty"`
	Appointment *Appointment     `json:"appointment,omitempty"`
}
