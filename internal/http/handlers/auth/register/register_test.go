package register

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/aahar/internal/storage"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Register(ctx context.Context, email, name, password string) (int64, error) {
	args := m.Called(ctx, email, name, password)
	return args.Get(0).(int64), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	const valid = `{"email":"a@x.com","name":"Meera","password":"secret1"}`

	tests := []struct {
		name           string
		body           string
		mockID         int64
		mockErr        error
		call           bool
		wantStatusCode int
		wantBody       string
	}{
		{name: "created", body: valid, mockID: 4, call: true, wantStatusCode: http.StatusCreated, wantBody: `"id":4`},
		{name: "duplicate email", body: valid, mockErr: storage.ErrUserExists, call: true, wantStatusCode: http.StatusConflict},
		{name: "storage error", body: valid, mockErr: errors.New("db down"), call: true, wantStatusCode: http.StatusInternalServerError},
		{name: "short password", body: `{"email":"a@x.com","name":"Meera","password":"123"}`, wantStatusCode: http.StatusBadRequest},
		{name: "bad email", body: `{"email":"meera","name":"Meera","password":"secret1"}`, wantStatusCode: http.StatusBadRequest},
		{name: "invalid json", body: `{"email":`, wantStatusCode: http.StatusBadRequest, wantBody: "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(AuthServiceMock)
			if tt.call {
				svc.On("Register", mock.Anything, "a@x.com", "Meera", "secret1").Return(tt.mockID, tt.mockErr).Once()
			}
			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			svc.AssertExpectations(t)
		})
	}
}
