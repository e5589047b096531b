package transmitter

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/robotalks/relayrx/pkg/link"
	"github.com/robotalks/relayrx/pkg/mqtt"
)

// Config provides options to reach a receiver.
type Config struct {
	// ID is the receiver ID, used by MQTT links.
	ID string
	// LinkURL is serial:///dev/ttyUSB0?baud=9600 or mqtt://host:1883/relayrx/
	LinkURL string
	// ConfiguratorURL is the receiver's configurator, e.g. http://relayrx:8080
	ConfiguratorURL string
	Password        string
	KeepAlive       time.Duration
}

var defaultConfig = Config{
	LinkURL:         "serial:///dev/ttyUSB0?baud=9600",
	ConfiguratorURL: "http://localhost:8080",
	KeepAlive:       DefaultKeepAlive,
}

func init() {
	if val := os.Getenv("RELAYTX_ID"); val != "" {
		defaultConfig.ID = val
	}
	if val := os.Getenv("RELAYTX_LINK"); val != "" {
		defaultConfig.LinkURL = val
	}
	if val := os.Getenv("RELAYTX_CONFIGURATOR"); val != "" {
		defaultConfig.ConfiguratorURL = val
	}
	if val := os.Getenv("RELAYTX_PASSWORD"); val != "" {
		defaultConfig.Password = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Receiver ID (MQTT link).")
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Command link URL.")
	flag.StringVar(&defaultConfig.ConfiguratorURL, "configurator", defaultConfig.ConfiguratorURL, "Receiver configurator URL.")
	flag.StringVar(&defaultConfig.Password, "password", defaultConfig.Password, "Configurator password.")
	flag.DurationVar(&defaultConfig.KeepAlive, "keepalive", defaultConfig.KeepAlive, "Mask resend period.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// OpenSink opens the command link for writing.
func (c *Config) OpenSink() (io.WriteCloser, error) {
	u, err := url.Parse(c.LinkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %v", err)
	}
	switch u.Scheme {
	case "mqtt", "tcp", "ssl", "ws", "wss":
		if c.ID == "" {
			return nil, fmt.Errorf("receiver id is required for %q", c.LinkURL)
		}
		w, err := mqtt.OpenCommandWriter(c.LinkURL, c.ID)
		if err != nil {
			return nil, err
		}
		return w, nil
	case "", "serial":
		port, err := link.SerialFromURL(c.LinkURL)
		if err != nil {
			return nil, err
		}
		return port.OpenPort()
	default:
		return nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
	}
}

// NewClient creates the configurator client.
func (c *Config) NewClient() *Client {
	return NewClient(c.ConfiguratorURL, c.Password)
}

// MustOpenSink opens the link and fails on error.
func (c *Config) MustOpenSink() io.WriteCloser {
	sink, err := c.OpenSink()
	if err != nil {
		log.Fatalln(err)
	}
	return sink
}
