package entitlement

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/aahar/internal/broadcast"
	"github.com/magabrotheeeer/aahar/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// fakeClock управляемые часы для проверки истечения срока.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *MemoryStore, *fakeClock) {
	t.Helper()
	store := NewMemoryStore()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewManager(store, newNoopLogger(), opts...), store, clock
}

func TestManager_SetStatusRoundTrip(t *testing.T) {
	types := []models.SubscriptionType{
		models.SubscriptionFree,
		models.SubscriptionPremiumMonthly,
		models.SubscriptionPremiumYearly,
		models.SubscriptionTrimester,
		models.SubscriptionGoldenTrimesterPack,
	}
	ctx := context.Background()

	for _, typ := range types {
		for _, premium := range []bool{true, false} {
			t.Run(string(typ), func(t *testing.T) {
				m, _, _ := newTestManager(t)

				_, err := m.SetStatus(ctx, "Mother@Example.com", premium, typ)
				require.NoError(t, err)

				got, err := m.GetStatus(ctx, "mother@example.com")
				require.NoError(t, err)
				assert.Equal(t, premium && typ.Paid(), got)
			})
		}
	}
}

func TestManager_UpgradeLifecycle(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(t)

	_, err := m.SetStatus(ctx, "a@x.com", false, models.SubscriptionFree)
	require.NoError(t, err)
	status, err := m.GetStatus(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, status)

	_, err = m.SetStatus(ctx, "a@x.com", true, models.SubscriptionPremiumMonthly)
	require.NoError(t, err)
	status, err = m.GetStatus(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, status)

	details, err := m.GetDetails(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, details)
	require.NotNil(t, details.ExpiresAt)
	assert.WithinDuration(t, clock.Now().Add(30*24*time.Hour), *details.ExpiresAt, time.Second)
	assert.Equal(t, models.SubscriptionPremiumMonthly, details.SubscriptionType)

	require.NoError(t, m.Clear(ctx, "a@x.com"))
	status, err = m.GetStatus(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, status)
	details, err = m.GetDetails(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, details)
}

func TestManager_ExpiryOverridesFlag(t *testing.T) {
	tests := []struct {
		name   string
		typ    models.SubscriptionType
		period time.Duration
	}{
		{name: "monthly", typ: models.SubscriptionPremiumMonthly, period: 30 * 24 * time.Hour},
		{name: "yearly", typ: models.SubscriptionPremiumYearly, period: 365 * 24 * time.Hour},
	}
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store, clock := newTestManager(t)
			_, err := m.SetStatus(ctx, "a@x.com", true, tt.typ)
			require.NoError(t, err)

			clock.Advance(tt.period - time.Second)
			status, err := m.GetStatus(ctx, "a@x.com")
			require.NoError(t, err)
			assert.True(t, status)

			clock.Advance(2 * time.Second)
			status, err = m.GetStatus(ctx, "a@x.com")
			require.NoError(t, err)
			assert.False(t, status)

			flag, _, err := store.Read(ctx, PremiumKey("a@x.com"))
			require.NoError(t, err)
			assert.Equal(t, "true", flag)
		})
	}
}

func TestManager_UnboundedPlansNeverExpire(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(t)

	_, err := m.SetStatus(ctx, "a@x.com", true, models.SubscriptionGoldenTrimesterPack)
	require.NoError(t, err)
	clock.Advance(10 * 365 * 24 * time.Hour)

	status, err := m.GetStatus(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, status)
}

func TestManager_SetStatusIsIdempotentOverwrite(t *testing.T) {
	ctx := context.Background()
	m, store, clock := newTestManager(t)

	_, err := m.SetStatus(ctx, "a@x.com", true, models.SubscriptionPremiumMonthly)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	second := clock.Now()
	_, err = m.SetStatus(ctx, "a@x.com", true, models.SubscriptionPremiumMonthly)
	require.NoError(t, err)

	details, err := m.GetDetails(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, second.Equal(details.ActivatedAt))
	assert.Equal(t, 2, store.Len(), "one flag and one record")
}

func TestManager_DowngradeForcesFree(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	_, err := m.SetStatus(ctx, "a@x.com", true, models.SubscriptionPremiumYearly)
	require.NoError(t, err)
	rec, err := m.SetStatus(ctx, "a@x.com", false, models.SubscriptionPremiumYearly)
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionFree, rec.SubscriptionType)
	assert.Nil(t, rec.ExpiresAt)
	assert.False(t, rec.IsPremium)
}

func TestManager_MismatchedFlagIsNotPremium(t *testing.T) {
	ctx := context.Background()

	t.Run("flag without record", func(t *testing.T) {
		m, store, _ := newTestManager(t)
		require.NoError(t, store.Write(ctx, PremiumKey("a@x.com"), "true"))

		status, err := m.GetStatus(ctx, "a@x.com")
		require.NoError(t, err)
		assert.False(t, status)
	})

	t.Run("flag true, record false", func(t *testing.T) {
		m, store, _ := newTestManager(t)
		_, err := m.SetStatus(ctx, "a@x.com", false, models.SubscriptionFree)
		require.NoError(t, err)
		require.NoError(t, store.Write(ctx, PremiumKey("a@x.com"), "true"))

		status, err := m.GetStatus(ctx, "a@x.com")
		require.NoError(t, err)
		assert.False(t, status)
	})

	t.Run("record true, flag false", func(t *testing.T) {
		m, store, _ := newTestManager(t)
		_, err := m.SetStatus(ctx, "a@x.com", true, models.SubscriptionTrimester)
		require.NoError(t, err)
		require.NoError(t, store.Write(ctx, PremiumKey("a@x.com"), "false"))

		status, err := m.GetStatus(ctx, "a@x.com")
		require.NoError(t, err)
		assert.False(t, status)
	})
}

func TestManager_CorruptedRecordFailsClosed(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)

	_, err := m.SetStatus(ctx, "a@x.com", true, models.SubscriptionPremiumMonthly)
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, SubscriptionKey("a@x.com"), "{not json"))

	assert.NotPanics(t, func() {
		status, err := m.GetStatus(ctx, "a@x.com")
		require.NoError(t, err)
		assert.False(t, status)
	})

	details, err := m.GetDetails(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, details)
}

func TestManager_StorageUnavailable(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)
	store.SetFailing(true)

	_, err := m.SetStatus(ctx, "a@x.com", true, models.SubscriptionPremiumMonthly)
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	status, err := m.GetStatus(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.False(t, status)

	_, err = m.Verify(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = m.GetDetails(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	assert.ErrorIs(t, m.Clear(ctx, "a@x.com"), ErrStorageUnavailable)
}

func TestManager_InvalidInput(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	_, err := m.SetStatus(ctx, "   ", true, models.SubscriptionTrimester)
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = m.SetStatus(ctx, "a@x.com", true, models.SubscriptionType("platinum"))
	assert.ErrorIs(t, err, ErrUnknownSubscriptionType)

	status, err := m.GetStatus(ctx, "")
	require.NoError(t, err)
	assert.False(t, status)
}

func TestManager_VerifyUpdatesLastVerified(t *testing.T) {
	ctx := context.Background()
	m, store, clock := newTestManager(t)

	status, err := m.Verify(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, status)
	assert.Equal(t, 0, store.Len(), "verify without record writes nothing")

	_, err = m.SetStatus(ctx, "a@x.com", true, models.SubscriptionPremiumMonthly)
	require.NoError(t, err)

	clock.Advance(31 * 24 * time.Hour)
	status, err = m.Verify(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, status, "expired subscription reports false")

	details, err := m.GetDetails(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, clock.Now().Equal(details.LastVerified))
	assert.True(t, details.IsPremium, "verify does not revoke the record")
}

func TestManager_MirrorsMatchingSession(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, WithSessionMirror())

	require.NoError(t, m.Sessions().Save(ctx, models.CurrentUserSession{
		Email: "A@X.com", Name: "Anaya", IsAuthenticated: true,
	}))

	_, err := m.SetStatus(ctx, "a@x.com", true, models.SubscriptionTrimester)
	require.NoError(t, err)
	sess, err := m.Sessions().Load(ctx)
	require.NoError(t, err)
	assert.True(t, sess.IsPremium)

	_, err = m.SetStatus(ctx, "someone@else.com", false, models.SubscriptionFree)
	require.NoError(t, err)
	sess, err = m.Sessions().Load(ctx)
	require.NoError(t, err)
	assert.True(t, sess.IsPremium, "other user's change does not touch the session")

	require.NoError(t, m.Clear(ctx, "a@x.com"))
	sess, err = m.Sessions().Load(ctx)
	require.NoError(t, err)
	assert.False(t, sess.IsPremium)
	assert.Equal(t, "Anaya", sess.Name)
}

// keyLog запоминает ключи, к которым обращался Manager.
type keyLog struct {
	*MemoryStore
	mu   sync.Mutex
	keys []string
}

func (s *keyLog) Read(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
	return s.MemoryStore.Read(ctx, key)
}

func (s *keyLog) Write(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
	return s.MemoryStore.Write(ctx, key, value)
}

func TestManager_ServerModeIgnoresSession(t *testing.T) {
	ctx := context.Background()
	store := &keyLog{MemoryStore: NewMemoryStore()}
	m := NewManager(store, newNoopLogger())

	require.NoError(t, m.Sessions().Save(ctx, models.CurrentUserSession{
		Email: "a@x.com", Name: "Anaya", IsAuthenticated: true,
	}))
	store.keys = nil

	_, err := m.SetStatus(ctx, "a@x.com", true, models.SubscriptionTrimester)
	require.NoError(t, err)
	require.NoError(t, m.Clear(ctx, "a@x.com"))
	_, err = m.SetStatus(ctx, "a@x.com", true, models.SubscriptionTrimester)
	require.NoError(t, err)

	assert.NotContains(t, store.keys, KeyUser)
	sess, err := m.Sessions().Load(ctx)
	require.NoError(t, err)
	assert.False(t, sess.IsPremium)
}

func TestManager_EmitsStorageEvents(t *testing.T) {
	ctx := context.Background()
	hub := broadcast.NewHub()
	events, cancel, err := hub.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	m, _, _ := newTestManager(t, WithNotifier(hub))
	_, err = m.SetStatus(ctx, "a@x.com", true, models.SubscriptionTrimester)
	require.NoError(t, err)

	var keys []string
	for range 2 {
		select {
		case ev := <-events:
			assert.Equal(t, broadcast.KindStorage, ev.Kind)
			keys = append(keys, ev.Key)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for storage event")
		}
	}
	assert.ElementsMatch(t, []string{SubscriptionKey("a@x.com"), PremiumKey("a@x.com")}, keys)
}

func TestSanitizeEmail(t *testing.T) {
	assert.Equal(t, "priya.k+aahar@example.com", SanitizeEmail("  Priya.K+Aahar@Example.com "))
	assert.Equal(t, "a_b@x.com", SanitizeEmail("a b@x.com"))
	assert.Equal(t, "aahar_premium_a@x.com", PremiumKey("A@X.COM"))
	assert.True(t, InNamespace(SubscriptionKey("a@x.com")))
	assert.False(t, InNamespace(KeyUser))
}

func TestSessionStore_CorruptedSessionIsAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Write(ctx, KeyUser, "garbage"))

	sess, err := NewSessionStore(store).Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}
