package actuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/relayrx/pkg/relay"
)

func TestWatchdogForcesOffAfterTimeout(t *testing.T) {
	f := newFixture()
	w := NewWatchdog(f.engine)
	require.NoError(t, f.engine.ApplyMask(0x5))
	t0 := f.clock.now

	fired, err := w.Check(t0.Add(Timeout - time.Millisecond))
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, relay.Mask(0x5), f.engine.State().Mask)

	now := f.clock.Advance(Timeout)
	fired, err = w.Check(now)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, relay.Mask(0), f.engine.State().Mask)
	assert.Equal(t, now, f.engine.State().Applied)
	for _, line := range f.channels.Assignment() {
		assert.False(t, f.on(t, line))
	}
	assert.False(t, f.ledOn(t))
	assert.Equal(t, 1, w.Expired())

	// Stays off without further commands.
	for n := 1; n <= 3; n++ {
		fired, err = w.Check(now.Add(time.Duration(n) * Timeout))
		require.NoError(t, err)
		assert.False(t, fired)
		assert.Equal(t, relay.Mask(0), f.engine.State().Mask)
	}
	assert.Equal(t, 1, w.Expired())
}

func TestWatchdogIdleRestartsTiming(t *testing.T) {
	f := newFixture()
	w := NewWatchdog(f.engine)
	require.NoError(t, f.engine.AllOff())
	writes := 0
	if l, ok := f.bank.Line(13); ok {
		writes = l.Writes
	}

	now := f.clock.Advance(2 * Timeout)
	fired, err := w.Check(now)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, now, f.engine.State().Applied)
	l, _ := f.bank.Line(13)
	assert.Equal(t, writes, l.Writes, "idle timeout doesn't write outputs")
}

func TestWatchdogFedByCommands(t *testing.T) {
	f := newFixture()
	w := NewWatchdog(f.engine)
	for n := 0; n < 10; n++ {
		require.NoError(t, f.engine.ApplyMask(0x1))
		fired, err := w.Check(f.clock.Advance(Timeout / 2))
		require.NoError(t, err)
		require.False(t, fired)
	}
	assert.Equal(t, relay.Mask(1), f.engine.State().Mask)
}

func TestWatchdogCustomTimeout(t *testing.T) {
	f := newFixture()
	w := &Watchdog{Engine: f.engine, Timeout: time.Second}
	require.NoError(t, f.engine.ApplyMask(0x1))
	fired, _ := w.Check(f.clock.Advance(Timeout))
	assert.False(t, fired)
	fired, _ = w.Check(f.clock.Advance(Timeout))
	assert.True(t, fired)
}
