package list

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/aahar/internal/models"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) List(ctx context.Context, email string) ([]models.Appointment, error) {
	args := m.Called(ctx, email)
	list, _ := args.Get(0).([]models.Appointment)
	return list, args.Error(1)
}

func TestHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		mockList   []models.Appointment
		mockErr    error
		call       bool
		wantStatus int
		wantLen    int
	}{
		{
			name:       "ordered list",
			body:       `{"user_email":"a@x.com"}`,
			mockList:   []models.Appointment{{ID: 1, Date: "2025-06-01"}, {ID: 2, Date: "2025-07-01"}},
			call:       true,
			wantStatus: http.StatusOK,
			wantLen:    2,
		},
		{
			name:       "empty list is an array",
			body:       `{"user_email":"a@x.com"}`,
			call:       true,
			wantStatus: http.StatusOK,
		},
		{name: "missing email", body: `{}`, wantStatus: http.StatusBadRequest},
		{
			name:       "query error",
			body:       `{"user_email":"a@x.com"}`,
			mockErr:    errors.New("db down"),
			call:       true,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.call {
				svc.On("List", mock.Anything, "a@x.com").Return(tt.mockList, tt.mockErr).Once()
			}
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/get-appointments", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp struct {
				Success      bool                 `json:"success"`
				Appointments []models.Appointment `json:"appointments"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus == http.StatusOK, resp.Success)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"appointments":[`)
				assert.Len(t, resp.Appointments, tt.wantLen)
			}
			svc.AssertExpectations(t)
		})
	}
}
