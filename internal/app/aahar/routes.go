package aahar

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/auth/deleteaccount"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/booking/book"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/booking/list"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/health"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/otp/send"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/otp/verify"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/premium"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/recipes"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/subscription/downgrade"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/subscription/events"
	"github.com/magabrotheeeer/aahar/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/aahar/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/aahar/internal/services/auth"
	bookingservice "github.com/magabrotheeeer/aahar/internal/services/booking"
	otpservice "github.com/magabrotheeeer/aahar/internal/services/otp"
	recipesservice "github.com/magabrotheeeer/aahar/internal/services/recipes"
	subservice "github.com/magabrotheeeer/aahar/internal/services/subscription"
)

// Services зависимости маршрутов.
type Services struct {
	Auth         *authservice.AuthService
	Booking      *bookingservice.Service
	OTP          *otpservice.Service
	Recipes      *recipesservice.Service
	Subscription *subservice.Service
	Entitlements *entitlement.Manager
	Health       map[string]health.Checker
	Limiter      *rate.Limiter
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.MetricsMiddleware,
	)

	r.Get("/health", health.New(logger, s.Health).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		if s.Limiter != nil {
			r.Use(middlewarectx.RateLimitMiddleware(logger, s.Limiter))
		}

		// Открытые конечные точки, пользователь определяется по email в теле запроса
		r.Post("/book-appointment", book.New(logger, s.Booking).ServeHTTP)
		r.Post("/get-appointments", list.New(logger, s.Booking).ServeHTTP)
		r.Post("/send-otp", send.New(logger, s.OTP).ServeHTTP)
		r.Post("/verify-otp", verify.New(logger, s.OTP).ServeHTTP)

		recipesHandler := recipes.New(logger, s.Recipes)
		r.Post("/save-recipe", recipesHandler.Save)
		r.Post("/get-saved-recipes", recipesHandler.List)
		r.Post("/remove-saved-recipe", recipesHandler.Remove)

		r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, s.Auth, s.Entitlements).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))

			r.Get("/subscription", status.New(logger, s.Subscription).ServeHTTP)
			r.Post("/subscription/verify", status.NewVerify(logger, s.Subscription).ServeHTTP)
			r.Post("/subscription/downgrade", downgrade.New(logger, s.Subscription).ServeHTTP)
			r.Get("/subscription/events", events.New(logger, s.Subscription).ServeHTTP)
			r.Delete("/account", deleteaccount.New(logger, s.Auth).ServeHTTP)

			// Премиальные справочники
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.PremiumMiddleware(logger, s.Entitlements))

				content := premium.New(logger)
				r.Get("/doctors", content.Doctors)
				r.Get("/doctors/{id}", content.Doctor)
				r.Get("/delivery-tracker", content.Tracker)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
