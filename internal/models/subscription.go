// Package models содержит доменные структуры Aahar: записи о подписке пользователя,
// сессию браузера, записи к врачу, сохранённые рецепты и сообщения уведомлений.
package models

import (
	"time"
)

// SubscriptionType тип тарифа пользователя.
type SubscriptionType string

const (
	// SubscriptionFree бесплатный тариф, конечное состояние при отключении премиума.
	SubscriptionFree SubscriptionType = "free"
	// SubscriptionPremiumMonthly помесячный премиум, действует 30 дней.
	SubscriptionPremiumMonthly SubscriptionType = "premium_monthly"
	// SubscriptionPremiumYearly годовой премиум, действует 365 дней.
	SubscriptionPremiumYearly SubscriptionType = "premium_yearly"
	// SubscriptionTrimester премиум на триместр, срок не ограничивается.
	SubscriptionTrimester SubscriptionType = "trimester"
	// SubscriptionGoldenTrimesterPack расширенный пакет на все триместры.
	SubscriptionGoldenTrimesterPack SubscriptionType = "golden_trimester_pack"
)

const (
	monthlyPeriod = 30 * 24 * time.Hour
	yearlyPeriod  = 365 * 24 * time.Hour
)

// Valid сообщает, входит ли тип в известный набор тарифов.
func (t SubscriptionType) Valid() bool {
	switch t {
	case SubscriptionFree, SubscriptionPremiumMonthly, SubscriptionPremiumYearly,
		SubscriptionTrimester, SubscriptionGoldenTrimesterPack:
		return true
	}
	return false
}

// Paid сообщает, является ли тариф платным.
func (t SubscriptionType) Paid() bool {
	return t.Valid() && t != SubscriptionFree
}

// ExpiresAt вычисляет дату окончания тарифа, активированного в момент activatedAt.
// Для тарифов без ограничения срока возвращает nil.
func (t SubscriptionType) ExpiresAt(activatedAt time.Time) *time.Time {
	var exp time.Time
	switch t {
	case SubscriptionPremiumMonthly:
		exp = activatedAt.Add(monthlyPeriod)
	case SubscriptionPremiumYearly:
		exp = activatedAt.Add(yearlyPeriod)
	default:
		return nil
	}
	return &exp
}

// UserSubscription подробная запись о подписке, одна на нормализованный email.
// ExpiresAt равен nil, если срок не ограничен.
type UserSubscription struct {
	Email            string           `json:"email"`
	IsPremium        bool             `json:"isPremium"`
	SubscriptionType SubscriptionType `json:"subscriptionType"`
	ActivatedAt      time.Time        `json:"activatedAt"`
	ExpiresAt        *time.Time       `json:"expiresAt,omitempty"`
	LastVerified     time.Time        `json:"lastVerified"`
}

// ActiveAt сообщает, даёт ли запись доступ к премиуму в момент now.
// Окончание срока должно быть строго позже now.
func (s *UserSubscription) ActiveAt(now time.Time) bool {
	if s == nil || !s.IsPremium {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
