// Package client HTTP-клиент к API Aahar: запись к врачу с защитой от повторной
// отправки и подключение премиума по одноразовому коду.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/aahar/internal/models"
)

const defaultTimeout = 10 * time.Second

// APIError ответ сервера с неуспешным статусом.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsStatus сообщает, что err это APIError с указанным статусом.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client клиент API.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
}

// Option настройка клиента.
type Option func(*Client)

// WithHTTPClient заменяет http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithToken добавляет Bearer-токен ко всем запросам.
func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

// New создаёт клиент для API по адресу apiURL, например http://localhost:8080/api.
func New(apiURL string, opts ...Option) *Client {
	c := &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BookAppointment записывает пользователя к врачу.
func (c *Client) BookAppointment(ctx context.Context, req models.AppointmentRequest) (*models.Appointment, error) {
	const op = "client.BookAppointment"
	var resp struct {
		envelope
		Appointment *models.Appointment `json:"appointment"`
	}
	if err := c.do(ctx, http.MethodPost, "/book-appointment", req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Appointment, nil
}

// GetAppointments возвращает записи пользователя.
func (c *Client) GetAppointments(ctx context.Context, email string) ([]models.Appointment, error) {
	const op = "client.GetAppointments"
	var resp struct {
		envelope
		Appointments []models.Appointment `json:"appointments"`
	}
	if err := c.do(ctx, http.MethodPost, "/get-appointments", map[string]string{"user_email": email}, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Appointments, nil
}

// SendOTP запрашивает одноразовый код на email.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	const op = "client.SendOTP"
	var resp envelope
	if err := c.do(ctx, http.MethodPost, "/send-otp", map[string]string{"email": email}, &resp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// VerifyOTP проверяет код и подключает тариф subType.
func (c *Client) VerifyOTP(ctx context.Context, email, code string, subType models.SubscriptionType) (*models.UserSubscription, error) {
	const op = "client.VerifyOTP"
	body := map[string]string{
		"email":            email,
		"otp":              code,
		"subscriptionType": string(subType),
	}
	var resp struct {
		envelope
		Subscription *models.UserSubscription `json:"subscription"`
	}
	if err := c.do(ctx, http.MethodPost, "/verify-otp", body, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Subscription, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Message == "" {
			env.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
