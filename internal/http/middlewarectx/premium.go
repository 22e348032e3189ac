package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/http/response"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/metrics"
)

// StatusReader читает статус подписки.
type StatusReader interface {
	GetStatus(ctx context.Context, email string) (bool, error)
}

// PremiumMiddleware пропускает запрос только при активном премиуме.
// Статус перечитывается на каждом запросе, флаг из сессии не используется.
// Недоступное хранилище даёт 503, отсутствие премиума 403.
func PremiumMiddleware(log *slog.Logger, entitlements StatusReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.PremiumMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			sess, ok := SessionFromContext(r.Context())
			if !ok {
				log.Error("user identification missing")
				response.JSON(w, r, http.StatusUnauthorized, response.Error("user identification missing"))
				return
			}

			premium, err := entitlements.GetStatus(r.Context(), sess.Email)
			if errors.Is(err, entitlement.ErrStorageUnavailable) {
				metrics.RecordPremiumGate("unavailable")
				log.Error("subscription storage unavailable", sl.Err(err))
				response.JSON(w, r, http.StatusServiceUnavailable, response.Error("subscription status is temporarily unavailable"))
				return
			}
			if err != nil {
				metrics.RecordPremiumGate("error")
				log.Error("failed to get subscription status", sl.Err(err))
				response.JSON(w, r, http.StatusInternalServerError, response.Error("internal service error"))
				return
			}
			if !premium {
				metrics.RecordPremiumGate("denied")
				log.Info("premium content denied", sl.Email(sess.Email))
				response.JSON(w, r, http.StatusForbidden, response.Error("premium subscription required"))
				return
			}

			metrics.RecordPremiumGate("allowed")
			next.ServeHTTP(w, r)
		})
	}
}
