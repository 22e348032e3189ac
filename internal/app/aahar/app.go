// Package aahar собирает HTTP API и gRPC health-сервис основного приложения.
package aahar

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/aahar/internal/broadcast"
	"github.com/magabrotheeeer/aahar/internal/cache"
	"github.com/magabrotheeeer/aahar/internal/config"
	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/health"
	"github.com/magabrotheeeer/aahar/internal/lib/jwt"
	"github.com/magabrotheeeer/aahar/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/migrations"
	authservice "github.com/magabrotheeeer/aahar/internal/services/auth"
	bookingservice "github.com/magabrotheeeer/aahar/internal/services/booking"
	otpservice "github.com/magabrotheeeer/aahar/internal/services/otp"
	recipesservice "github.com/magabrotheeeer/aahar/internal/services/recipes"
	subservice "github.com/magabrotheeeer/aahar/internal/services/subscription"
	"github.com/magabrotheeeer/aahar/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API и gRPC health-сервис.
type App struct {
	server     *http.Server
	grpcServer *grpc.Server
	health     *grpchealth.Server
	listener   net.Listener
	logger     *slog.Logger
	db         *storage.Storage
	cache      *cache.Cache
	conn       *amqp.Connection
	ch         *amqp.Channel
}

// New поднимает подключения к Postgres, Redis и RabbitMQ и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	// Изменения ключей подписки расходятся по репликам через Redis,
	// события subscription-changed остаются внутри процесса.
	syncChannel := broadcast.NewRedisChannel(cacheRedis.Db, cfg.SyncChannel, logger)
	hub := broadcast.NewHub()
	manager := entitlement.NewManager(cacheRedis, logger, entitlement.WithNotifier(syncChannel))

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	services := Services{
		Auth:         authservice.NewAuthService(db, manager, jwtMaker, logger),
		Booking:      bookingservice.NewService(db, publisher, logger),
		OTP:          otpservice.NewService(cacheRedis, manager, publisher, cfg.OTP, logger),
		Recipes:      recipesservice.NewService(db, logger),
		Subscription: subservice.NewService(manager, hub, cfg.SettleDelay, logger, syncChannel),
		Entitlements: manager,
		Health: map[string]health.Checker{
			"postgres": db.DB.PingContext,
			"redis": func(ctx context.Context) error {
				return cacheRedis.Db.Ping(ctx).Err()
			},
			"rabbitmq": func(context.Context) error {
				if conn.IsClosed() {
					return amqp.ErrClosed
				}
				return nil
			},
		},
		Limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, services)

	srv := newHTTPServer(cfg.HTTPServer, router)

	lis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, err
	}
	grpcServer := grpc.NewServer()
	healthServer := grpchealth.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &App{
		server:     srv,
		grpcServer: grpcServer,
		health:     healthServer,
		listener:   lis,
		logger:     logger,
		db:         db,
		cache:      cacheRedis,
		conn:       conn,
		ch:         ch,
	}, nil
}

// newHTTPServer создаёт HTTP-сервер, у которого контекст всех запросов
// отменяется в начале Shutdown. Иначе открытый поток /subscription/events
// держит остановку до истечения shutdownTimeout.
func newHTTPServer(cfg config.HTTPServer, handler http.Handler) *http.Server {
	baseCtx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      handler,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}

// Run обслуживает запросы до отмены ctx, затем останавливает серверы и закрывает подключения.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()
	go func() {
		a.logger.Info("gRPC health service listening on", slog.String("address", a.listener.Addr().String()))
		errCh <- a.grpcServer.Serve(a.listener)
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	a.logger.Info("shutting down gracefully")
	a.health.Shutdown()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(timeoutCtx); err != nil {
		a.logger.Error("failed to shutdown HTTP server", sl.Err(err))
		runErr = errors.Join(runErr, err)
	}
	a.grpcServer.GracefulStop()

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	return runErr
}
