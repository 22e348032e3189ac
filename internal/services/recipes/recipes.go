// Package recipes управляет избранными рецептами пользователя.
package recipes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/models"
)

// Repository хранилище избранного.
type Repository interface {
	SaveRecipe(ctx context.Context, r models.SavedRecipe) (bool, error)
	ListSavedRecipes(ctx context.Context, email string) ([]models.SavedRecipe, error)
	RemoveSavedRecipe(ctx context.Context, email, recipeID string) (int64, error)
}

// Service сохраняет, перечисляет и удаляет избранные рецепты.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService создаёт Service.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Save добавляет рецепт в избранное. Возвращает false, если он уже был сохранён.
func (s *Service) Save(ctx context.Context, r models.SavedRecipe) (bool, error) {
	const op = "recipes.Save"
	r.UserEmail = entitlement.NormalizeEmail(r.UserEmail)
	inserted, err := s.repo.SaveRecipe(ctx, r)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if inserted {
		s.log.Info("recipe saved", sl.Email(r.UserEmail), slog.String("recipe_id", r.RecipeID))
	}
	return inserted, nil
}

// List возвращает избранное пользователя.
func (s *Service) List(ctx context.Context, email string) ([]models.SavedRecipe, error) {
	const op = "recipes.List"
	list, err := s.repo.ListSavedRecipes(ctx, entitlement.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Remove удаляет рецепт из избранного. Возвращает false, если его там не было.
func (s *Service) Remove(ctx context.Context, email, recipeID string) (bool, error) {
	const op = "recipes.Remove"
	n, err := s.repo.RemoveSavedRecipe(ctx, entitlement.NormalizeEmail(email), recipeID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}
