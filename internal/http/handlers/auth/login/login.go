// Package login реализует HTTP-обработчик входа пользователя.
//
// При успешной проверке пароля возвращается JWT и сессия пользователя.
// Флаг премиума в сессии только подсказка для клиента и перечитывается
// из хранилища статусов при каждом входе.
package login

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/aahar/internal/http/response"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/models"
	"github.com/magabrotheeeer/aahar/internal/services/auth"
)

// Request входные данные для авторизации.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Response токен и сессия.
type Response struct {
	response.Response
	Token string                    `json:"token"`
	User  models.CurrentUserSession `json:"user"`
}

// Service описывает бизнес-логику аутентификации.
type Service interface {
	Login(ctx context.Context, email, password string) (string, *models.User, error)
}

// StatusReader читает статус подписки.
type StatusReader interface {
	GetStatus(ctx context.Context, email string) (bool, error)
}

// Handler обрабатывает HTTP-запросы для авторизации.
type Handler struct {
	log          *slog.Logger        // Логгер для записи операций и ошибок
	service      Service             // Сервис аутентификации
	entitlements StatusReader        // Источник статуса подписки
	validate     *validator.Validate // Валидатор для проверки входных данных
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, entitlements StatusReader) *Handler {
	return &Handler{
		log:          log,
		service:      service,
		entitlements: entitlements,
		validate:     validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Авторизация пользователя
// @Description Проверяет email и пароль. Возвращает JWT и текущую сессию.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные пользователя"
// @Success 200 {object} Response "Успешная авторизация"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.JSON(w, r, http.StatusBadRequest, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		response.JSON(w, r, http.StatusBadRequest, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		log.Info("invalid credentials", sl.Email(req.Email))
		response.JSON(w, r, http.StatusUnauthorized, response.Error("invalid credentials"))
		return
	}
	if err != nil {
		log.Error("login failed", sl.Err(err))
		response.JSON(w, r, http.StatusInternalServerError, response.Error("failed to log in"))
		return
	}

	premium, err := h.entitlements.GetStatus(r.Context(), user.Email)
	if err != nil {
		log.Warn("failed to read subscription on login", sl.Err(err))
	}

	log.Info("login success", sl.Email(user.Email))
	response.JSON(w, r, http.StatusOK, Response{
		Response: response.OK(""),
		Token:    token,
		User: models.CurrentUserSession{
			Email:           user.Email,
			Name:            user.Name,
			IsAuthenticated: true,
			IsPremium:       premium,
		},
	})
}
