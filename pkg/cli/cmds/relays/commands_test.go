package relays

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/relayrx/pkg/relay"
)

func TestParseMask(t *testing.T) {
	cases := []struct {
		in   string
		mask relay.Mask
		ok   bool
	}{
		{"1FFF", 0x1FFF, true},
		{"0x1001", 0x1001, true},
		{"0", 0, true},
		{"2000", 0, false},
		{"zz", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			mask, err := ParseMask(c.in)
			if !c.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.mask, mask)
		})
	}
}

func TestFormatChannels(t *testing.T) {
	out := FormatChannels(relay.NewChannelMap().Snapshot()[:2])
	assert.Equal(t, " 0 C => GPIO 13\n 1 B => GPIO 14", out)
}
