// Package output drives the physical lines of the relay bank.
package output

import (
	"fmt"
	"strings"

	"github.com/robotalks/relayrx/pkg/relay"
)

// Bank is a set of digital lines. Out configures the line as an
// output, if not yet, and sets its level. It must be idempotent.
type Bank interface {
	Out(line int, high bool) error
}

// Polarity tells which level energizes a load.
type Polarity int

// Polarities.
const (
	ActiveLow Polarity = iota
	ActiveHigh
)

// Level returns the line level for the on/off state.
func (p Polarity) Level(on bool) bool {
	if p == ActiveHigh {
		return on
	}
	return !on
}

// String implements fmt.Stringer.
func (p Polarity) String() string {
	if p == ActiveHigh {
		return "active-high"
	}
	return "active-low"
}

// ParsePolarity parses "active-low"/"low" or "active-high"/"high".
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(s) {
	case "active-low", "low":
		return ActiveLow, nil
	case "active-high", "high":
		return ActiveHigh, nil
	}
	return ActiveLow, fmt.Errorf("invalid polarity %q", s)
}

// Driver writes channel states to relay lines with a single global polarity.
type Driver struct {
	Bank     Bank
	Polarity Polarity
}

// NewDriver creates an active-low Driver.
func NewDriver(bank Bank) *Driver {
	return &Driver{Bank: bank, Polarity: ActiveLow}
}

// SetChannelOutput drives the line to active when on, inactive otherwise.
func (d *Driver) SetChannelOutput(line relay.Line, on bool) error {
	if err := d.Bank.Out(int(line), d.Polarity.Level(on)); err != nil {
		return fmt.Errorf("line %d: %w", line, err)
	}
	return nil
}

// Indicator is the status light, a single line with its own polarity.
// A negative Line disables it.
type Indicator struct {
	Bank     Bank
	Line     int
	Polarity Polarity
}

// DefaultIndicatorLine is the board LED.
const DefaultIndicatorLine = 2

// Set turns the indicator on or off.
func (i *Indicator) Set(on bool) error {
	if i == nil || i.Line < 0 {
		return nil
	}
	if err := i.Bank.Out(i.Line, i.Polarity.Level(on)); err != nil {
		return fmt.Errorf("indicator line %d: %w", i.Line, err)
	}
	return nil
}
