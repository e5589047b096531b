package relay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAssignmentIsValid(t *testing.T) {
	require.NoError(t, DefaultAssignment.Validate())
	require.Equal(t, 13, Channels)
	require.Equal(t, "13,14,18,19,21,22,23,25,26,27,32,33,16", DefaultAssignment.String())
}

func TestTransportLinesNotAllowed(t *testing.T) {
	assert.False(t, IsAllowed(int(LinkRXLine)))
	assert.False(t, IsAllowed(int(LinkTXLine)))
	for _, line := range AllowedLines() {
		assert.True(t, IsAllowed(int(line)))
	}
	assert.Len(t, AllowedLines(), Channels)
}

func TestValidate(t *testing.T) {
	notAllowed := DefaultAssignment
	notAllowed[3] = 4
	dup := DefaultAssignment
	dup[12] = 13

	var verr *ValidationError
	err := notAllowed.Validate()
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 3, verr.Index)
	assert.Equal(t, 4, verr.Line)
	assert.ErrorIs(t, err, ErrLineNotAllowed)

	err = dup.Validate()
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 12, verr.Index)
	assert.ErrorIs(t, err, ErrDuplicateLine)
	assert.Equal(t, "channel 12 (T) line 13: line assigned to multiple channels", err.Error())
}

func TestChannelMapReplace(t *testing.T) {
	m := NewChannelMap()
	require.Equal(t, DefaultAssignment, m.Assignment())

	good := Assignment{33, 32, 27, 26, 25, 23, 22, 21, 19, 18, 16, 14, 13}
	require.NoError(t, m.Replace(good))
	require.Equal(t, good, m.Assignment())
	for i, ch := range m.Snapshot() {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, Labels[i:i+1], ch.Label)
		assert.Equal(t, good[i], ch.Line)
	}

	bad := good
	bad[0] = 32
	require.ErrorIs(t, m.Replace(bad), ErrDuplicateLine)
	require.Equal(t, good, m.Assignment(), "rejected candidate must not touch the map")

	bad = good
	bad[5] = 5
	require.ErrorIs(t, m.Replace(bad), ErrLineNotAllowed)
	require.Equal(t, good, m.Assignment())
}

func TestAssignmentFromInts(t *testing.T) {
	cases := []struct {
		name   string
		lines  []int
		reason error
	}{
		{"default", []int{13, 14, 18, 19, 21, 22, 23, 25, 26, 27, 32, 33, 16}, nil},
		{"short", []int{13, 14}, ErrChannelCount},
		{"out of range", []int{13, 14, 18, 19, 21, 22, 23, 25, 26, 27, 32, 33, 272}, ErrLineNotAllowed},
		{"negative", []int{-1, 14, 18, 19, 21, 22, 23, 25, 26, 27, 32, 33, 16}, ErrLineNotAllowed},
		{"duplicate", []int{13, 13, 18, 19, 21, 22, 23, 25, 26, 27, 32, 33, 16}, ErrDuplicateLine},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := AssignmentFromInts(c.lines)
			if c.reason == nil {
				require.NoError(t, err)
				assert.Equal(t, DefaultAssignment, a)
				return
			}
			require.ErrorIs(t, err, c.reason)
		})
	}
}

func TestParseAssignment(t *testing.T) {
	a, err := ParseAssignment("13 14,18, 19 21 22 23 25 26 27 32 33 16")
	require.NoError(t, err)
	assert.Equal(t, DefaultAssignment, a)

	_, err = ParseAssignment("13 x")
	require.Error(t, err)
}

func TestIndexOf(t *testing.T) {
	n, ok := IndexOf("c")
	require.True(t, ok)
	assert.Equal(t, 0, n)
	n, ok = IndexOf("T")
	require.True(t, ok)
	assert.Equal(t, 12, n)
	_, ok = IndexOf("X")
	assert.False(t, ok)
	_, ok = IndexOf("CB")
	assert.False(t, ok)
}
