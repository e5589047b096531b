package actuation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/relayrx/pkg/output"
	"github.com/robotalks/relayrx/pkg/relay"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

type fixture struct {
	channels *relay.ChannelMap
	bank     *output.Sim
	led      *output.Indicator
	engine   *Engine
	clock    *clock
}

func newFixture() *fixture {
	f := &fixture{
		channels: relay.NewChannelMap(),
		bank:     output.NewSim(),
		clock:    &clock{now: time.Unix(100, 0)},
	}
	f.led = &output.Indicator{Bank: f.bank, Line: output.DefaultIndicatorLine, Polarity: output.ActiveHigh}
	f.engine = NewEngine(f.channels, output.NewDriver(f.bank), f.led)
	f.engine.Clock = f.clock.Now
	return f
}

// on reports the channel state from the active-low line level.
func (f *fixture) on(t *testing.T, line relay.Line) bool {
	l, ok := f.bank.Line(int(line))
	require.True(t, ok, "line %d never driven", line)
	return !l.High
}

func (f *fixture) ledOn(t *testing.T) bool {
	l, ok := f.bank.Line(output.DefaultIndicatorLine)
	require.True(t, ok)
	return l.High
}

func TestApplyEveryMask(t *testing.T) {
	f := newFixture()
	for m := relay.Mask(0); m <= relay.MaskBits; m++ {
		require.NoError(t, f.engine.ApplyMask(m))
		for i, line := range f.channels.Assignment() {
			if f.on(t, line) != m.IsOn(i) {
				t.Fatalf("mask %s: channel %d on=%v", m, i, !m.IsOn(i))
			}
		}
		if f.ledOn(t) != (m != 0) {
			t.Fatalf("mask %s: indicator mismatch", m)
		}
		require.Equal(t, m, f.engine.State().Mask)
	}
}

func TestApplyMaskDropsHighBits(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.engine.ApplyMask(0xE001))
	assert.Equal(t, relay.Mask(1), f.engine.State().Mask)
}

func TestAllOffIdempotent(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.engine.ApplyMask(0x1234))
	for n := 0; n < 2; n++ {
		f.clock.Advance(time.Millisecond)
		require.NoError(t, f.engine.AllOff())
		for _, line := range f.channels.Assignment() {
			assert.False(t, f.on(t, line))
		}
		assert.False(t, f.ledOn(t))
		assert.Equal(t, State{Mask: 0, Applied: f.clock.now}, f.engine.State())
	}
}

func TestApplyUsesCurrentMap(t *testing.T) {
	f := newFixture()
	swapped := relay.DefaultAssignment
	swapped[0], swapped[1] = swapped[1], swapped[0]
	require.NoError(t, f.channels.Replace(swapped))

	require.NoError(t, f.engine.ApplyMask(relay.MaskOf(0)))
	assert.True(t, f.on(t, 14), "channel C now drives line 14")
	assert.False(t, f.on(t, 13))
}

func TestApplyRecordsMaskOnWriteError(t *testing.T) {
	f := newFixture()
	f.bank.Fail = map[int]error{13: errors.New("stuck")}
	var seen []State
	f.engine.Observe(ObserverFunc(func(s State) { seen = append(seen, s) }))

	err := f.engine.ApplyMask(0x3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stuck")
	assert.True(t, f.on(t, 14), "other channels still written")
	assert.Equal(t, relay.Mask(0x3), f.engine.State().Mask)
	require.Len(t, seen, 1)
	assert.Equal(t, relay.Mask(0x3), seen[0].Mask)
}

func TestDriveInactiveKeepsState(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.engine.ApplyMask(0x1))
	st := f.engine.State()
	require.NoError(t, f.engine.DriveInactive())
	assert.False(t, f.on(t, 13))
	assert.Equal(t, st, f.engine.State())
}
