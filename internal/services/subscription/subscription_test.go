package subscription

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/aahar/internal/broadcast"
	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/entitlement/provider"
	"github.com/magabrotheeeer/aahar/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type fixture struct {
	svc   *Service
	mgr   *entitlement.Manager
	store *entitlement.MemoryStore
}

func setup() fixture {
	store := entitlement.NewMemoryStore()
	storageEvents := broadcast.NewHub()
	mgr := entitlement.NewManager(store, newNoopLogger(), entitlement.WithNotifier(storageEvents))
	svc := NewService(mgr, broadcast.NewHub(), 10*time.Millisecond, newNoopLogger(), storageEvents)
	return fixture{svc: svc, mgr: mgr, store: store}
}

var meera = models.CurrentUserSession{Email: "a@x.com", Name: "Meera", IsAuthenticated: true}

func TestService_StatusAndVerify(t *testing.T) {
	f := setup()
	ctx := context.Background()

	st, err := f.svc.Status(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, st.IsPremium)
	assert.Nil(t, st.Subscription)

	_, err = f.mgr.SetStatus(ctx, "a@x.com", true, models.SubscriptionPremiumYearly)
	require.NoError(t, err)

	st, err = f.svc.Verify(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, st.IsPremium)
	require.NotNil(t, st.Subscription)
	assert.Equal(t, models.SubscriptionPremiumYearly, st.Subscription.SubscriptionType)

	f.store.SetFailing(true)
	_, err = f.svc.Status(ctx, "a@x.com")
	assert.ErrorIs(t, err, entitlement.ErrStorageUnavailable)
	_, err = f.svc.Verify(ctx, "a@x.com")
	assert.ErrorIs(t, err, entitlement.ErrStorageUnavailable)
}

func TestService_Downgrade(t *testing.T) {
	f := setup()
	ctx := context.Background()
	_, err := f.mgr.SetStatus(ctx, "a@x.com", true, models.SubscriptionTrimester)
	require.NoError(t, err)

	rec, err := f.svc.Downgrade(ctx, meera)
	require.NoError(t, err)
	assert.False(t, rec.IsPremium)
	assert.Equal(t, models.SubscriptionFree, rec.SubscriptionType)

	premium, err := f.mgr.GetStatus(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, premium)

	_, err = f.svc.Downgrade(ctx, models.CurrentUserSession{})
	assert.ErrorIs(t, err, provider.ErrNoSession)
}

func TestService_WatchSeesChanges(t *testing.T) {
	f := setup()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, stop, err := f.svc.Watch(ctx, meera)
	require.NoError(t, err)
	defer stop()

	first := <-ch
	assert.Equal(t, provider.StateResolved, first.State)
	assert.False(t, first.IsPremium)

	_, err = f.mgr.SetStatus(context.Background(), "a@x.com", true, models.SubscriptionGoldenTrimesterPack)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case snap := <-ch:
			return snap.IsPremium
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestService_WatchClosesOnCancel(t *testing.T) {
	f := setup()
	ctx, cancel := context.WithCancel(context.Background())

	ch, _, err := f.svc.Watch(ctx, meera)
	require.NoError(t, err)
	<-ch
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
