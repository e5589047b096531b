// Package relay models the relay bank: channels, their output line
// assignment and the bitmask that drives them.
package relay

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Labels is the fixed label ordering, channel i is labeled Labels[i].
const Labels = "CBADEHGFZMOKT"

// Channels is the number of channels in the bank.
const Channels = len(Labels)

// Line identifies a physical output line.
type Line uint8

// Assignment maps every channel index to an output line.
type Assignment [Channels]Line

// DefaultAssignment is used when nothing valid is persisted.
var DefaultAssignment = Assignment{13, 14, 18, 19, 21, 22, 23, 25, 26, 27, 32, 33, 16}

// Transport lines, never usable as outputs.
const (
	LinkRXLine Line = 4
	LinkTXLine Line = 5
)

var allowedLines = []Line{13, 14, 16, 18, 19, 21, 22, 23, 25, 26, 27, 32, 33}

var (
	// ErrLineNotAllowed indicates a line outside of the allowed output set.
	ErrLineNotAllowed = errors.New("line not allowed")
	// ErrDuplicateLine indicates a line assigned to more than one channel.
	ErrDuplicateLine = errors.New("line assigned to multiple channels")
	// ErrChannelCount indicates a candidate without exactly one line per channel.
	ErrChannelCount = errors.New("wrong number of channels")
)

// ValidationError reports the first offending channel of a candidate assignment.
type ValidationError struct {
	Index int
	Line  int
	Err   error
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e.Index < 0 || e.Index >= Channels {
		return e.Err.Error()
	}
	return fmt.Sprintf("channel %d (%c) line %d: %v", e.Index, Labels[e.Index], e.Line, e.Err)
}

// Unwrap returns the reason.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AllowedLines returns the lines a channel may be assigned to, ascending.
func AllowedLines() []Line {
	lines := make([]Line, len(allowedLines))
	copy(lines, allowedLines)
	return lines
}

// IsAllowed checks if the line is in the allowed output set.
func IsAllowed(line int) bool {
	for _, l := range allowedLines {
		if int(l) == line {
			return true
		}
	}
	return false
}

// Label returns the label of a channel.
func Label(index int) string {
	return Labels[index : index+1]
}

// IndexOf finds the channel index by its label, case-insensitive.
func IndexOf(label string) (int, bool) {
	if len(label) != 1 {
		return -1, false
	}
	n := strings.Index(Labels, strings.ToUpper(label))
	return n, n >= 0
}

// Validate verifies every line is allowed and used once.
func (a Assignment) Validate() error {
	var used [256]int
	for i, line := range a {
		if !IsAllowed(int(line)) {
			return &ValidationError{Index: i, Line: int(line), Err: ErrLineNotAllowed}
		}
		if n := used[line]; n > 0 {
			return &ValidationError{Index: i, Line: int(line), Err: ErrDuplicateLine}
		}
		used[line] = i + 1
	}
	return nil
}

// String formats the assignment as comma separated lines.
func (a Assignment) String() string {
	items := make([]string, len(a))
	for i, line := range a {
		items[i] = strconv.Itoa(int(line))
	}
	return strings.Join(items, ",")
}

// AssignmentFromInts builds a validated assignment from untyped line numbers.
func AssignmentFromInts(lines []int) (Assignment, error) {
	var a Assignment
	if len(lines) != Channels {
		return a, &ValidationError{Index: -1, Line: len(lines), Err: ErrChannelCount}
	}
	for i, line := range lines {
		if !IsAllowed(line) {
			return a, &ValidationError{Index: i, Line: line, Err: ErrLineNotAllowed}
		}
		a[i] = Line(line)
	}
	return a, a.Validate()
}

// ParseAssignment parses comma or space separated line numbers.
func ParseAssignment(s string) (Assignment, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	lines := make([]int, len(fields))
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			return Assignment{}, &ValidationError{Index: i, Line: -1, Err: ErrLineNotAllowed}
		}
		lines[i] = n
	}
	return AssignmentFromInts(lines)
}

// Channel is a read-only view of one channel.
type Channel struct {
	Index int    `json:"index"`
	Label string `json:"name"`
	Line  Line   `json:"gpio"`
}

// ChannelMap holds the current assignment.
// It is replaced as a whole, never channel by channel.
type ChannelMap struct {
	assignment Assignment
}

// NewChannelMap creates a ChannelMap with the default assignment.
func NewChannelMap() *ChannelMap {
	return &ChannelMap{assignment: DefaultAssignment}
}

// Assignment returns a copy of the current assignment.
func (m *ChannelMap) Assignment() Assignment {
	return m.assignment
}

// Line returns the output line of a channel.
func (m *ChannelMap) Line(index int) Line {
	return m.assignment[index]
}

// Replace validates the candidate and swaps it in. On error the
// map is left untouched.
func (m *ChannelMap) Replace(a Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	m.assignment = a
	return nil
}

// Snapshot lists all channels in index order.
func (m *ChannelMap) Snapshot() []Channel {
	channels := make([]Channel, Channels)
	for i, line := range m.assignment {
		channels[i] = Channel{Index: i, Label: Label(i), Line: line}
	}
	return channels
}
