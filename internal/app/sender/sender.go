// Package sender собирает notification-sender: потребитель очередей уведомлений,
// который отправляет письма по SMTP.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/aahar/internal/config"
	"github.com/magabrotheeeer/aahar/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/lib/smtp"
	"github.com/magabrotheeeer/aahar/internal/metrics"
	senderservice "github.com/magabrotheeeer/aahar/internal/services/sender"
)

const shutdownTimeout = 5 * time.Second

// App потребитель уведомлений.
type App struct {
	metricsServer *http.Server
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

// New подключается к RabbitMQ и объявляет очереди уведомлений.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to RabbitMQ")

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	return &App{
		metricsServer: &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           metricsRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		conn:          conn,
		ch:            ch,
		senderService: senderservice.NewSenderService(logger, transport),
		logger:        logger,
	}, nil
}

// metricsRouter отдаёт счётчики писем для Prometheus.
func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Run потребляет очереди до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	metricsErr := make(chan error, 1)
	go func() {
		a.logger.Info("metrics server starting on", slog.String("address", a.metricsServer.Addr))
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
	}()

	consumers := []struct {
		queue     string
		emailType string
		handler   func([]byte) error
	}{
		{queue: rabbitmq.QueueOTP, emailType: "otp", handler: a.senderService.SendOTP},
		{queue: rabbitmq.QueueBooking, emailType: "booking", handler: a.senderService.SendBookingConfirmation},
	}
	for _, c := range consumers {
		err := rabbitmq.ConsumerMessage(ctx, a.ch, c.queue, a.logger, recordEmail(c.emailType, c.handler))
		if err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", c.queue), sl.Err(err))
			return err
		}
		a.logger.Info("consumer started", slog.String("queue", c.queue))
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-metricsErr:
		a.logger.Error("metrics server failed", sl.Err(runErr))
	}
	a.logger.Info("Sender service shutting down gracefully")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.metricsServer.Shutdown(timeoutCtx); err != nil {
		a.logger.Error("failed to shutdown metrics server", sl.Err(err))
	}

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return runErr
}

func recordEmail(emailType string, handler func([]byte) error) func([]byte) error {
	return func(body []byte) error {
		if err := handler(body); err != nil {
			metrics.RecordEmail(emailType, "error")
			return err
		}
		metrics.RecordEmail(emailType, "sent")
		return nil
	}
}
