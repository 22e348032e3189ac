package models

// CurrentUserSession кэш текущей сессии браузера. Источником истины
// о премиуме не является и для проверки доступа не используется.
type CurrentUserSession struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	IsPremium       bool   `json:"isPremium"`
}
