package models

import "time"

// User зарегистрированный пользователь.
type User struct {
	ID           int64     // Идентификатор
	Email        string    // Нормализованный email
	Name         string    // Отображаемое имя
	PasswordHash string    // bcrypt-хэш пароля
	CreatedAt    time.Time // Дата регистрации
}
