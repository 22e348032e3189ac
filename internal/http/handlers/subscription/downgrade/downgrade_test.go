package downgrade

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/http/middlewarectx"
	"github.com/magabrotheeeer/aahar/internal/models"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Downgrade(ctx context.Context, sess models.CurrentUserSession) (*models.UserSubscription, error) {
	args := m.Called(ctx, sess)
	rec, _ := args.Get(0).(*models.UserSubscription)
	return rec, args.Error(1)
}

func TestHandler_ServeHTTP(t *testing.T) {
	sess := models.CurrentUserSession{Email: "a@x.com", Name: "Meera"}

	tests := []struct {
		name       string
		mockRec    *models.UserSubscription
		mockErr    error
		wantStatus int
	}{
		{name: "ok", mockRec: &models.UserSubscription{Email: "a@x.com", SubscriptionType: models.SubscriptionFree}, wantStatus: http.StatusOK},
		{name: "storage down", mockErr: entitlement.ErrStorageUnavailable, wantStatus: http.StatusServiceUnavailable},
		{name: "other", mockErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			svc.On("Downgrade", mock.Anything, sess).Return(tt.mockRec, tt.mockErr).Once()
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/subscription/downgrade", nil)
			req = req.WithContext(middlewarectx.WithSession(req.Context(), &sess))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"subscriptionType":"free"`)
			}
			svc.AssertExpectations(t)
		})
	}
}
