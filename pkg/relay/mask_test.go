package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskBits(t *testing.T) {
	assert.Equal(t, Mask(0x1FFF), MaskBits)
	assert.Equal(t, Mask(0x5), MaskOf(0, 2))
	assert.Equal(t, Mask(0), MaskOf(13), "bits beyond the bank are dropped")
}

func TestMaskActive(t *testing.T) {
	assert.Equal(t, "none", Mask(0).ActiveString())
	assert.Equal(t, "C B A", Mask(0x7).ActiveString())
	assert.Equal(t, []string{"C", "T"}, Mask(0x1001).Active())
	assert.Equal(t, "0x1FFF", MaskBits.String())
	for i := 0; i < Channels; i++ {
		assert.True(t, MaskBits.IsOn(i))
		assert.False(t, Mask(0).IsOn(i))
	}
}
