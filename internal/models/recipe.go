package models

import "time"

// SavedRecipe рецепт, сохранённый пользователем в избранное.
type SavedRecipe struct {
	ID          int64     `json:"id"`
	UserEmail   string    `json:"user_email"`
	RecipeID    string    `json:"recipe_id"`
	RecipeTitle string    `json:"recipe_title"`
	Trimester   int       `json:"trimester,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}
