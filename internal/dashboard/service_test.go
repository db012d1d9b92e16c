package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

func TestServiceCreateStoresSession(t *testing.T) {
	env := newTestEnv(Settings{})

	sess, err := env.service.Create(context.Background(), "", Light)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)

	got, err := env.service.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestServiceCreateUsesFallback(t *testing.T) {
	fallback := weather.Coordinates{Lat: 40.71, Lon: -74.01}
	env := newTestEnv(Settings{Fallback: &fallback})
	env.locator.err = errIP

	sess, err := env.service.Create(context.Background(), "", Light)
	require.NoError(t, err)
	assert.Equal(t, fallback, *sess.View().Coordinates)
}

func TestServiceGetUnknown(t *testing.T) {
	env := newTestEnv(Settings{})

	_, err := env.service.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.service.Delete("missing"), ErrNotFound)
}

func TestServiceGetTouchesAndPruneEvictsIdle(t *testing.T) {
	env := newTestEnv(Settings{})
	ctx := context.Background()

	idle, err := env.service.Create(ctx, "", Light)
	require.NoError(t, err)
	active, err := env.service.Create(ctx, "", Light)
	require.NoError(t, err)

	env.clock.Advance(45 * time.Minute)
	_, err = env.service.Get(active.ID)
	require.NoError(t, err)
	env.clock.Advance(30 * time.Minute)

	assert.Equal(t, 1, env.service.Prune())

	_, err = env.service.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.service.Get(active.ID)
	assert.NoError(t, err)
}

func TestServiceRefreshReady(t *testing.T) {
	env := newTestEnv(Settings{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.service.Create(ctx, "", Light)
		require.NoError(t, err)
	}

	env.locator.err = errIP
	failed, err := env.service.Create(ctx, "", Light)
	require.Error(t, err)
	require.Equal(t, weather.StateFailed, failed.State())

	before := env.provider.callCount()
	assert.Equal(t, 3, env.service.RefreshReady(ctx, time.Second))
	assert.Equal(t, before+3, env.provider.callCount())
}

func TestServiceRestartUsesRestartTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	env := newTestEnv(Settings{LookupTimeout: time.Second, RestartTimeout: time.Minute})
	env.locator.err = errIP

	sess, err := env.service.Create(ctx, "", Light)
	require.Error(t, err)
	defer sess.Close()

	env.locator.err = nil
	require.NoError(t, env.clock.BlockUntilContext(ctx, 1))
	env.clock.Advance(weather.DefaultRecoveryPolicy().ReloadDelay)

	require.Eventually(t, func() bool {
		return sess.State() == weather.StateReady
	}, 2*time.Second, 5*time.Millisecond)
	assert.Greater(t, time.Until(env.provider.lastDeadline()), 50*time.Second)
}

func TestServiceDelete(t *testing.T) {
	env := newTestEnv(Settings{})
	sess, err := env.service.Create(context.Background(), "", Light)
	require.NoError(t, err)

	require.NoError(t, env.service.Delete(sess.ID))
	_, err = env.service.Get(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
