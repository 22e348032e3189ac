package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/aahar/internal/models"
)

// SaveRecipe добавляет рецепт в избранное. Повторное сохранение ничего не меняет,
// в ответе false.
func (s *Storage) SaveRecipe(ctx context.Context, r models.SavedRecipe) (bool, error) {
	const op = "storage.SaveRecipe"

	query := `INSERT INTO saved_recipes (user_email, recipe_id, recipe_title, trimester)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (user_email, recipe_id) DO NOTHING`
	res, err := s.DB.ExecContext(ctx, query, r.UserEmail, r.RecipeID, r.RecipeTitle, r.Trimester)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// ListSavedRecipes возвращает избранное пользователя, новые первыми.
func (s *Storage) ListSavedRecipes(ctx context.Context, email string) ([]models.SavedRecipe, error) {
	const op = "storage.ListSavedRecipes"

	query := `SELECT id, user_email, recipe_id, recipe_title, trimester, saved_at
			  FROM saved_recipes
			  WHERE user_email = $1
			  ORDER BY saved_at DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]models.SavedRecipe, 0)
	for rows.Next() {
		var r models.SavedRecipe
		if err := rows.Scan(&r.ID, &r.UserEmail, &r.RecipeID, &r.RecipeTitle, &r.Trimester, &r.SavedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RemoveSavedRecipe удаляет рецепт из избранного и возвращает число удалённых строк.
func (s *Storage) RemoveSavedRecipe(ctx context.Context, email, recipeID string) (int64, error) {
	const op = "storage.RemoveSavedRecipe"

	res, err := s.DB.ExecContext(ctx, `DELETE FROM saved_recipes WHERE user_email = $1 AND recipe_id = $2`, email, recipeID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
