package output

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// ErrNoSuchLine indicates the host doesn't expose the line.
var ErrNoSuchLine = errors.New("no such line")

// GPIO is a Bank backed by the host GPIO controller.
type GPIO struct {
	// PinName maps a line number to the registry name.
	PinName func(line int) string

	lock sync.Mutex
	pins map[int]gpio.PinIO
}

// OpenGPIO initializes the host drivers.
func OpenGPIO() (*GPIO, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	if glog.V(2) {
		for _, d := range state.Loaded {
			glog.Infof("periph driver loaded: %s", d)
		}
	}
	return &GPIO{
		PinName: func(line int) string { return fmt.Sprintf("GPIO%d", line) },
		pins:    make(map[int]gpio.PinIO),
	}, nil
}

// Out implements Bank.
func (g *GPIO) Out(line int, high bool) error {
	pin, err := g.pin(line)
	if err != nil {
		return err
	}
	level := gpio.Low
	if high {
		level = gpio.High
	}
	return pin.Out(level)
}

func (g *GPIO) pin(line int) (gpio.PinIO, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if pin, ok := g.pins[line]; ok {
		return pin, nil
	}
	name := g.PinName(line)
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNoSuchLine)
	}
	glog.V(2).Infof("line %d is %s", line, pin)
	g.pins[line] = pin
	return pin, nil
}
