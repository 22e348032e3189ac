// Package entitlement управляет статусом премиум-подписки пользователя.
//
// Статус хранится в двух ключах: дешёвый флаг aahar_premium_<email> и подробная
// запись aahar_subscription_<email> в JSON. Флаг лишь подсказка: доступ даётся
// только при согласованной записи, срок которой не истёк. Любая ошибка разбора
// записи трактуется как отсутствие премиума, ошибки хранилища возвращаются
// как ErrStorageUnavailable.
package entitlement

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrStorageUnavailable хранилище недоступно (переполнено, отключено, нет связи).
	ErrStorageUnavailable = errors.New("entitlement storage unavailable")
	// ErrInvalidEmail пустой email.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrUnknownSubscriptionType тип подписки не из известного набора.
	ErrUnknownSubscriptionType = errors.New("unknown subscription type")
)

// Store ключ-значение хранилище, в котором лежат записи о подписке.
type Store interface {
	// Read возвращает значение ключа и признак его наличия.
	Read(ctx context.Context, key string) (string, bool, error)
	// Write перезаписывает значение ключа.
	Write(ctx context.Context, key, value string) error
	// Delete удаляет ключи, отсутствие ключа ошибкой не считается.
	Delete(ctx context.Context, keys ...string) error
}

const (
	// KeyPrefixPremium префикс ключа с булевым флагом.
	KeyPrefixPremium = "aahar_premium_"
	// KeyPrefixSubscription префикс ключа с подробной записью.
	KeyPrefixSubscription = "aahar_subscription_"
	// KeyUser ключ текущей сессии.
	KeyUser = "aahar_user"
)

// NormalizeEmail приводит email к нижнему регистру без пробелов по краям.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SanitizeEmail готовит email к использованию в имени ключа: после нормализации
// все символы вне [a-z0-9@._+-] заменяются на "_".
func SanitizeEmail(email string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == '@', r == '.', r == '_', r == '+', r == '-':
			return r
		}
		return '_'
	}, NormalizeEmail(email))
}

// PremiumKey ключ флага для email.
func PremiumKey(email string) string {
	return KeyPrefixPremium + SanitizeEmail(email)
}

// SubscriptionKey ключ подробной записи для email.
func SubscriptionKey(email string) string {
	return KeyPrefixSubscription + SanitizeEmail(email)
}

// InNamespace сообщает, относится ли ключ к статусу подписки.
func InNamespace(key string) bool {
	return strings.HasPrefix(key, KeyPrefixPremium) || strings.HasPrefix(key, KeyPrefixSubscription)
}
