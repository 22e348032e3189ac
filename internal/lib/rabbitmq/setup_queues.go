package rabbitmq

// Exchange direct-exchange, через который идут все уведомления.
const Exchange = "notifications"

const prefetch = 10

const (
	// RoutingKeyOTP письма с одноразовым кодом.
	RoutingKeyOTP = "otp"
	// RoutingKeyBooking подтверждения записи к врачу.
	RoutingKeyBooking = "booking"

	QueueOTP     = "notification.otp"
	QueueBooking = "notification.booking"
)

// QueueConfig очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues очереди, которые слушает notification-sender.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueOTP, RoutingKey: RoutingKeyOTP},
		{QueueName: QueueBooking, RoutingKey: RoutingKeyBooking},
	}
}
