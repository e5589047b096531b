package relay

import (
	"fmt"
	"strings"
)

// Mask carries one bit per channel, bit i drives channel i.
type Mask uint16

// MaskBits covers all channels.
const MaskBits Mask = 1<<Channels - 1

// MaskOf builds a mask with the given channels on.
func MaskOf(indices ...int) Mask {
	var m Mask
	for _, i := range indices {
		m |= 1 << uint(i)
	}
	return m & MaskBits
}

// IsOn tells if channel i is on.
func (m Mask) IsOn(i int) bool {
	return m>>uint(i)&1 != 0
}

// Active returns labels of the active channels.
func (m Mask) Active() []string {
	var labels []string
	for i := 0; i < Channels; i++ {
		if m.IsOn(i) {
			labels = append(labels, Label(i))
		}
	}
	return labels
}

// ActiveString joins active labels with spaces, or "none".
func (m Mask) ActiveString() string {
	if labels := m.Active(); len(labels) > 0 {
		return strings.Join(labels, " ")
	}
	return "none"
}

// String implements fmt.Stringer.
func (m Mask) String() string {
	return fmt.Sprintf("0x%X", uint16(m))
}
