// Package env assembles a relay receiver from configuration.
package env

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/relayrx/pkg/configurator"
	fx "github.com/robotalks/relayrx/pkg/framework"
	"github.com/robotalks/relayrx/pkg/link"
	"github.com/robotalks/relayrx/pkg/mqtt"
	"github.com/robotalks/relayrx/pkg/output"
	"github.com/robotalks/relayrx/pkg/receiver"
	"github.com/robotalks/relayrx/pkg/store"
)

// Output banks.
const (
	OutputsGPIO = "gpio"
	OutputsSim  = "sim"
)

// Config provides the options to run a receiver.
type Config struct {
	ID string

	// LinkURL selects the command link, e.g.
	// serial:///dev/serial0?baud=9600 or mqtt://host:1883/relayrx/
	LinkURL   string
	StorePath string

	Outputs   string
	ActiveLow bool
	LEDLine   int

	HTTPAddr         string
	HTTPPassword     string
	HTTPOpenFallback bool

	// MQTTBrokerURL enables state reporting when not empty.
	MQTTBrokerURL string

	Interval time.Duration
}

var defaultConfig = Config{
	LinkURL:          "serial:///dev/serial0?baud=9600",
	StorePath:        store.DefaultPath,
	Outputs:          OutputsGPIO,
	ActiveLow:        true,
	LEDLine:          output.DefaultIndicatorLine,
	HTTPAddr:         ":8080",
	HTTPOpenFallback: true,
	Interval:         fx.DefaultInterval,
}

func init() {
	if val := os.Getenv("RELAYRX_LINK"); val != "" {
		defaultConfig.LinkURL = val
	}
	if val := os.Getenv("RELAYRX_STORE"); val != "" {
		defaultConfig.StorePath = val
	}
	if val := os.Getenv("RELAYRX_OUTPUTS"); val != "" {
		defaultConfig.Outputs = val
	}
	if val := os.Getenv("RELAYRX_HTTP"); val != "" {
		defaultConfig.HTTPAddr = val
	}
	if val := os.Getenv("RELAYRX_HTTP_PASSWORD"); val != "" {
		defaultConfig.HTTPPassword = val
	}
	if val, err := strconv.ParseBool(os.Getenv("RELAYRX_HTTP_OPEN_FALLBACK")); err == nil {
		defaultConfig.HTTPOpenFallback = val
	}
	if val := os.Getenv("RELAYRX_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	defaultConfig.ID = os.Getenv("RELAYRX_ID")
	if defaultConfig.ID == "" {
		defaultConfig.ID = MachineID()
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Receiver ID")
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Command link URL (serial:// or mqtt://)")
	flag.StringVar(&defaultConfig.StorePath, "store", defaultConfig.StorePath, "Assignment file")
	flag.StringVar(&defaultConfig.Outputs, "outputs", defaultConfig.Outputs, "Output bank: gpio or sim")
	flag.BoolVar(&defaultConfig.ActiveLow, "active-low", defaultConfig.ActiveLow, "Relays energize on a low line")
	flag.IntVar(&defaultConfig.LEDLine, "led-line", defaultConfig.LEDLine, "Status LED line, negative to disable")
	flag.StringVar(&defaultConfig.HTTPAddr, "http", defaultConfig.HTTPAddr, "Configurator listen address, empty to disable")
	flag.StringVar(&defaultConfig.HTTPPassword, "http-password", defaultConfig.HTTPPassword, "Configurator password")
	flag.BoolVar(&defaultConfig.HTTPOpenFallback, "http-open-fallback", defaultConfig.HTTPOpenFallback, "Serve the configurator without auth if the password is unusable")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for state reports")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Loop interval")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is an assembled receiver with everything running around it.
type Env struct {
	Config       *Config
	Bank         output.Bank
	Receiver     *receiver.Receiver
	Pump         *link.Pump
	Configurator *configurator.Listener
	Reporter     *mqtt.Reporter
}

// NewSource creates the link source from URL.
func NewSource(linkURL, id string) (link.Source, error) {
	u, err := url.Parse(linkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link %q: %w", linkURL, err)
	}
	switch u.Scheme {
	case "mqtt", "tcp", "ssl", "ws", "wss":
		return mqtt.NewLink(linkURL, id), nil
	case "", "serial":
		port, err := link.SerialFromURL(linkURL)
		if err != nil {
			return nil, err
		}
		return port, nil
	}
	return nil, fmt.Errorf("unsupported link %q", linkURL)
}

func (c *Config) newBank() (output.Bank, error) {
	switch c.Outputs {
	case OutputsGPIO:
		return output.OpenGPIO()
	case OutputsSim:
		return output.NewSim(), nil
	}
	return nil, fmt.Errorf("unknown outputs %q", c.Outputs)
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("receiver id must be specified")
	}
	bank, err := c.newBank()
	if err != nil {
		return nil, fmt.Errorf("open outputs error: %w", err)
	}
	polarity := output.ActiveHigh
	if c.ActiveLow {
		polarity = output.ActiveLow
	}
	driver := &output.Driver{Bank: bank, Polarity: polarity}
	light := &output.Indicator{Bank: bank, Line: c.LEDLine, Polarity: output.ActiveHigh}

	var st receiver.Store
	if c.StorePath != "" {
		st = store.NewFile(c.StorePath)
	}
	env := &Env{
		Config:   c,
		Bank:     bank,
		Receiver: receiver.New(driver, light, st),
	}

	if c.LinkURL != "" {
		src, err := NewSource(c.LinkURL, c.ID)
		if err != nil {
			return nil, err
		}
		env.Pump = link.NewPump(src, link.DefaultBacklog)
		env.Receiver.Bytes = env.Pump.Bytes()
	} else {
		glog.Warning("no command link, relays stay off")
	}

	if c.HTTPAddr != "" {
		if pwd, err := configurator.AccessPassword(c.HTTPPassword, c.HTTPOpenFallback); err != nil {
			glog.Errorf("configurator disabled: %v", err)
		} else {
			srv := configurator.New(env.Receiver, pwd)
			env.Receiver.Engine.Observe(srv.Hub)
			env.Configurator = &configurator.Listener{Addr: c.HTTPAddr, Server: srv}
		}
	}

	if c.MQTTBrokerURL != "" {
		reporter, err := mqtt.NewReporter(c.MQTTBrokerURL, c.ID)
		if err != nil {
			return nil, fmt.Errorf("create MQTT reporter error: %w", err)
		}
		env.Reporter = reporter
		env.Receiver.Engine.Observe(reporter)
	}
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// AddToLoop implements LoopAdder.
func (e *Env) AddToLoop(loop *fx.Loop) {
	if e.Config.Interval > 0 {
		loop.Interval = e.Config.Interval
	}
	loop.Add(e.Receiver)
	if e.Pump != nil {
		loop.AddRunnable(e.Pump)
	}
	if e.Configurator != nil {
		loop.AddRunnable(e.Configurator)
	}
	if e.Reporter != nil {
		loop.AddRunnable(e.Reporter)
	}
}

// Shutdown switches all outputs off once the loop returned loopErr.
// After a forced exit the loop may still own the engine, outputs are left
// to the process exit.
func (e *Env) Shutdown(loopErr error) error {
	if errors.Is(loopErr, fx.ErrForcedExit) {
		glog.Warning("forced exit, skip all relays off")
		return nil
	}
	return e.Receiver.Shutdown()
}
