package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/relayrx/pkg/relay"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line string
		mask relay.Mask
		ok   bool
	}{
		{"K:1FFF", 0x1FFF, true},
		{"K:2000", 0, true},
		{"K:1fff", 0x1FFF, true},
		{"K:5", 0x5, true},
		{" \tK:3", 0x3, true},
		{"K: 3", 0x3, true},
		{"K:3zz", 0x3, true},
		{"K:12G4", 0x12, true},
		{"K:", 0, true},
		{"K:xyz", 0, true},
		{"K:0x1F", 0x1F, true},
		{"K:0x", 0, true},
		{"K:+7", 0x7, true},
		{"K:-1", 0x1FFF, true},
		{"K:FFFFFFFFFF", 0x1FFF, true},
		{"K:-FFFFFFFFFF", 0, true},
		{"K:FFFF", 0x1FFF, true},
		{"k:1", 0, false},
		{"garbage", 0, false},
		{"", 0, false},
		{"K", 0, false},
		{"\nK:1", 0, false},
		{"xK:1", 0, false},
	}
	for _, c := range cases {
		t.Run(c.line, func(t *testing.T) {
			mask, ok := ParseCommand([]byte(c.line))
			require.Equal(t, c.ok, ok)
			assert.Equal(t, c.mask, mask)
		})
	}
}

func TestFormatCommand(t *testing.T) {
	assert.Equal(t, "K:0\n", string(FormatCommand(0)))
	assert.Equal(t, "K:1FFF\n", string(FormatCommand(relay.MaskBits)))
	assert.Equal(t, "K:A5\n", string(FormatCommand(0xA5)))
	for _, m := range []relay.Mask{0, 1, 0x80, 0x1234, 0x1FFF} {
		line := FormatCommand(m)
		parsed, ok := ParseCommand(line[:len(line)-1])
		require.True(t, ok)
		assert.Equal(t, m, parsed)
	}
}
