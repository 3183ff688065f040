package progress

import (
	"context"
	"testing"
	"time"

	"furk/models"
	"furk/services/session"
	"furk/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisSessions(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	sealer, err := utils.NewSealer("test-secret")
	require.NoError(t, err)
	return session.NewRedisStore(client, sealer), mr
}

func runManager(t *testing.T, m *Manager) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(10 * time.Millisecond)
	return ctx
}

func TestManager_StopsWidgetWhenSessionExpiresInRedis(t *testing.T) {
	store, mr := newRedisSessions(t)
	dialer := &fakeDialer{}
	m := NewManager(store, ManagerConfig{
		URL:               "wss://push.furk.test/progress",
		Dialer:            dialer,
		Clock:             &fakeClock{},
		ReconcileInterval: time.Hour,
	})
	ctx := runManager(t, m)

	require.NoError(t, store.Save(ctx, &models.Session{
		ID:            "s1",
		IdentityToken: "tok-1",
		Role:          models.RoleUser,
		TokenExpiry:   time.Now().Add(time.Hour).Unix(),
	}))
	require.Eventually(t, func() bool { return m.Active() == 1 && dialer.dials() == 1 }, time.Second, 5*time.Millisecond)
	conn := dialer.lastConn()

	// the record lapses through its TTL; no cleared event is published
	mr.FastForward(31 * 24 * time.Hour)
	_, err := store.Load(ctx, "s1")
	require.ErrorIs(t, err, session.ErrNotFound)

	m.Reconcile(ctx)
	assert.Equal(t, 0, m.Active())
	assert.Nil(t, m.Get("s1"))
	select {
	case <-conn.done:
	default:
		t.Fatal("upstream socket left open after the session expired")
	}
	assert.Equal(t, 1, dialer.dials())
}

func TestManager_ReconcileKeepsLiveSessions(t *testing.T) {
	store := session.NewMemoryStore()
	dialer := &fakeDialer{}
	m := NewManager(store, ManagerConfig{URL: "wss://push.furk.test/progress", Dialer: dialer, Clock: &fakeClock{}})
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Session{ID: "live", IdentityToken: "tok", Role: models.RoleMerchant}))
	m.Ensure(ctx, "live")
	require.Eventually(t, func() bool { return dialer.dials() == 1 }, time.Second, 5*time.Millisecond)

	m.Reconcile(ctx)
	assert.Equal(t, 1, m.Active())
	m.StopAll()
	assert.Equal(t, 0, m.Active())
}

func TestManager_TokenMissStopsWidget(t *testing.T) {
	store := session.NewMemoryStore()
	dialer := &fakeDialer{}
	m := NewManager(store, ManagerConfig{URL: "wss://push.furk.test/progress", Dialer: dialer, Clock: &fakeClock{}})

	// no record behind this session id
	m.Ensure(context.Background(), "ghost")
	assert.Eventually(t, func() bool { return m.Active() == 0 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, m.Get("ghost"))
}

func TestManager_PeriodicReconcile(t *testing.T) {
	store, mr := newRedisSessions(t)
	dialer := &fakeDialer{}
	m := NewManager(store, ManagerConfig{
		URL:               "wss://push.furk.test/progress",
		Dialer:            dialer,
		Clock:             &fakeClock{},
		ReconcileInterval: 20 * time.Millisecond,
	})
	ctx := runManager(t, m)

	require.NoError(t, store.Save(ctx, &models.Session{
		ID:            "s1",
		IdentityToken: "tok-1",
		Role:          models.RoleUser,
		TokenExpiry:   time.Now().Add(time.Hour).Unix(),
	}))
	require.Eventually(t, func() bool { return m.Active() == 1 && dialer.dials() == 1 }, time.Second, 5*time.Millisecond)

	mr.FastForward(31 * 24 * time.Hour)
	assert.Eventually(t, func() bool { return m.Active() == 0 }, time.Second, 5*time.Millisecond)
}
