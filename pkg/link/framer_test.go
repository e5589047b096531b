package link

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(f *Framer, s string) []string {
	var lines []string
	for i := 0; i < len(s); i++ {
		if line, ok := f.Feed(s[i]); ok {
			lines = append(lines, string(line))
		}
	}
	return lines
}

func TestFramerSplitsLines(t *testing.T) {
	var f Framer
	require.Equal(t, []string{"K:1", "K:2", ""}, feedAll(&f, "K:1\nK:2\r\n\n"))
	assert.Zero(t, f.Pending())
}

func TestFramerDropsCR(t *testing.T) {
	var f Framer
	require.Equal(t, []string{"K:1F"}, feedAll(&f, "\rK:\r1F\r\n"))
}

func TestFramerKeepsPartialLine(t *testing.T) {
	var f Framer
	require.Empty(t, feedAll(&f, "K:1"))
	assert.Equal(t, 3, f.Pending())
	require.Equal(t, []string{"K:1FF"}, feedAll(&f, "FF\n"))
}

func TestFramerMaxLine(t *testing.T) {
	var f Framer
	line := strings.Repeat("a", MaxLineLen)
	require.Equal(t, []string{line}, feedAll(&f, line+"\n"))
	assert.Zero(t, f.Overflows())
}

func TestFramerOverflowRecovers(t *testing.T) {
	var f Framer
	// The 24th byte overflows, the rest of that line is dropped with it.
	lines := feedAll(&f, strings.Repeat("x", MaxLineLen)+"yz\nK:3\n")
	require.Equal(t, []string{"K:3"}, lines)
	assert.Equal(t, 1, f.Overflows())

	mask, ok := ParseCommand([]byte(lines[0]))
	require.True(t, ok)
	assert.EqualValues(t, 3, mask)
}

func TestFramerOverflowTailNotFramed(t *testing.T) {
	var f Framer
	lines := feedAll(&f, strings.Repeat("x", FrameSize)+"K:1FFF\n")
	assert.Empty(t, lines)
	assert.Equal(t, 1, f.Overflows())
	assert.Zero(t, f.Pending())

	require.Equal(t, []string{"K:1"}, feedAll(&f, "K:1\n"))
}

func TestFramerOverflowGarbageThenCommand(t *testing.T) {
	var f Framer
	lines := feedAll(&f, strings.Repeat("g", 2*FrameSize)+"\nK:1\n")
	require.Equal(t, []string{"K:1"}, lines)
	assert.Equal(t, 1, f.Overflows())
}

func TestFramerReset(t *testing.T) {
	var f Framer
	feedAll(&f, "K:12")
	f.Reset()
	require.Equal(t, []string{"K:3"}, feedAll(&f, "K:3\n"))

	feedAll(&f, strings.Repeat("x", FrameSize))
	f.Reset()
	require.Equal(t, []string{"K:4"}, feedAll(&f, "K:4\n"))
}
