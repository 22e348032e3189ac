// Package recipes реализует HTTP-обработчики избранных рецептов.
package recipes

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/aahar/internal/http/response"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/models"
)

// SaveRequest тело запроса сохранения.
type SaveRequest struct {
	UserEmail   string `json:"user_email" validate:"required,email"`
	RecipeID    string `json:"recipe_id" validate:"required,max=128"`
	RecipeTitle string `json:"recipe_title" validate:"required,max=256"`
	Trimester   int    `json:"trimester" validate:"min=0,max=3"`
}

// ListRequest тело запроса списка.
type ListRequest struct {
	UserEmail string `json:"user_email" validate:"required,email"`
}

// RemoveRequest тело запроса удаления.
type RemoveRequest struct {
	UserEmail string `json:"user_email" validate:"required,email"`
	RecipeID  string `json:"recipe_id" validate:"required"`
}

// ListResponse список избранного.
type ListResponse struct {
	response.Response
	Recipes []models.SavedRecipe `json:"recipes"`
}

// Service бизнес-логика избранного.
type Service interface {
	Save(ctx context.Context, r models.SavedRecipe) (bool, error)
	List(ctx context.Context, email string) ([]models.SavedRecipe, error)
	Remove(ctx context.Context, email, recipeID string) (bool, error)
}

// Handler обрабатывает запросы к избранному.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// decode читает и валидирует тело. При ошибке ответ уже записан.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.JSON(w, r, http.StatusBadRequest, response.Error("invalid request body"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		response.JSON(w, r, http.StatusBadRequest, response.ValidationError(err.(validator.ValidationErrors)))
		return false
	}
	return true
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Save godoc
// @Summary Сохранить рецепт
// @Description Повторное сохранение того же рецепта ничего не меняет.
// @Tags Recipes
// @Accept json
// @Produce json
// @Param request body SaveRequest true "Рецепт"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /save-recipe [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.recipes.save")

	var req SaveRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	inserted, err := h.service.Save(r.Context(), models.SavedRecipe{
		UserEmail:   req.UserEmail,
		RecipeID:    req.RecipeID,
		RecipeTitle: req.RecipeTitle,
		Trimester:   req.Trimester,
	})
	if err != nil {
		log.Error("failed to save recipe", sl.Err(err))
		response.JSON(w, r, http.StatusInternalServerError, response.Error("failed to save recipe"))
		return
	}

	msg := "Recipe saved"
	if !inserted {
		msg = "Recipe already saved"
	}
	response.JSON(w, r, http.StatusOK, response.OK(msg))
}

// List godoc
// @Summary Избранные рецепты
// @Tags Recipes
// @Accept json
// @Produce json
// @Param request body ListRequest true "Email пользователя"
// @Success 200 {object} ListResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /get-saved-recipes [post]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.recipes.list")

	var req ListRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	list, err := h.service.List(r.Context(), req.UserEmail)
	if err != nil {
		log.Error("failed to list recipes", sl.Err(err))
		response.JSON(w, r, http.StatusInternalServerError, response.Error("failed to fetch saved recipes"))
		return
	}
	if list == nil {
		list = []models.SavedRecipe{}
	}
	response.JSON(w, r, http.StatusOK, ListResponse{Response: response.OK(""), Recipes: list})
}

// Remove godoc
// @Summary Удалить рецепт из избранного
// @Tags Recipes
// @Accept json
// @Produce json
// @Param request body RemoveRequest true "Рецепт"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /remove-saved-recipe [post]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.recipes.remove")

	var req RemoveRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	removed, err := h.service.Remove(r.Context(), req.UserEmail, req.RecipeID)
	if err != nil {
		log.Error("failed to remove recipe", sl.Err(err))
		response.JSON(w, r, http.StatusInternalServerError, response.Error("failed to remove recipe"))
		return
	}
	if !removed {
		response.JSON(w, r, http.StatusNotFound, response.Error("recipe is not in saved list"))
		return
	}
	response.JSON(w, r, http.StatusOK, response.OK("Recipe removed"))
}
