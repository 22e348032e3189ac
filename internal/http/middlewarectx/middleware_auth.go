// Package middlewarectx содержит HTTP middleware: проверку JWT, премиум-доступа,
// ограничение частоты запросов и сбор метрик.
//
// JWTMiddleware кладёт сессию пользователя в контекст запроса, остальные
// middleware и обработчики достают её через SessionFromContext.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/aahar/internal/http/response"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// User ключ сессии пользователя в контексте.
const User Key = "user"

// TokenValidator проверяет JWT и возвращает сессию.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.CurrentUserSession, error)
}

// SessionFromContext достаёт сессию, положенную JWTMiddleware.
func SessionFromContext(ctx context.Context) (*models.CurrentUserSession, bool) {
	sess, ok := ctx.Value(User).(*models.CurrentUserSession)
	return sess, ok && sess != nil && sess.Email != ""
}

// WithSession кладёт сессию в контекст.
func WithSession(ctx context.Context, sess *models.CurrentUserSession) context.Context {
	return context.WithValue(ctx, User, sess)
}

// JWTMiddleware проверяет Bearer-токен в заголовке Authorization.
// Без валидного токена отвечает 401.
func JWTMiddleware(validator TokenValidator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				response.JSON(w, r, http.StatusUnauthorized, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			sess, err := validator.ValidateToken(r.Context(), tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				response.JSON(w, r, http.StatusUnauthorized, response.Error("invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
