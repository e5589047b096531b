// Package relays provides shell commands driving a relay receiver.
package relays

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/relayrx/pkg/cli/sh"
	"github.com/robotalks/relayrx/pkg/configurator"
	"github.com/robotalks/relayrx/pkg/relay"
	"github.com/robotalks/relayrx/pkg/transmitter"
)

type maskDoc struct {
	Mask   string   `json:"mask"`
	Active []string `json:"active"`
	Sent   int      `json:"sent"`
}

func sent(c *ishell.Context) {
	tx := sh.ShellFrom(c).Conn.Tx
	mask := tx.Mask()
	sh.Print(c, &maskDoc{Mask: mask.String(), Active: mask.Active(), Sent: tx.Sent()},
		fmt.Sprintf("Mask: %s  Active: %s", mask, mask.ActiveString()))
}

func update(set bool) func(c *ishell.Context) {
	return sh.MustBeConnected(func(c *ishell.Context) {
		if len(c.Args) == 0 {
			c.Err(fmt.Errorf("relay labels expected, any of %s", relay.Labels))
			return
		}
		mask, err := transmitter.ParseLabels(c.Args...)
		if err != nil {
			c.Err(err)
			return
		}
		tx := sh.ShellFrom(c).Conn.Tx
		if set {
			err = tx.Update(mask, 0)
		} else {
			err = tx.Update(0, mask)
		}
		if err != nil {
			c.Err(err)
			return
		}
		sent(c)
	})
}

// ParseMask parses a hex mask, with or without 0x.
func ParseMask(s string) (relay.Mask, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	n, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid mask %q", s)
	}
	if relay.Mask(n)&^relay.MaskBits != 0 {
		return 0, fmt.Errorf("mask %q exceeds %d relays", s, relay.Channels)
	}
	return relay.Mask(n), nil
}

// FormatChannels prints the channel map as a table.
func FormatChannels(channels []relay.Channel) string {
	var w bytes.Buffer
	for _, ch := range channels {
		fmt.Fprintf(&w, "%2d %s => GPIO %d\n", ch.Index, ch.Label, ch.Line)
	}
	return strings.TrimSuffix(w.String(), "\n")
}

func formatState(st *configurator.StateDoc) string {
	active := strings.Join(st.Active, " ")
	if active == "" {
		active = "none"
	}
	return fmt.Sprintf("Mask: %s  Active: %s  (commands=%d ignored=%d expired=%d overflows=%d)",
		st.Mask, active, st.Commands, st.Ignored, st.Expired, st.Overflows)
}

var (
	// OnCmd switches relays on.
	OnCmd = ishell.Cmd{
		Name: "on",
		Help: "LABELS",
		Func: update(true),
	}

	// OffCmd switches relays off.
	OffCmd = ishell.Cmd{
		Name: "off",
		Help: "LABELS",
		Func: update(false),
	}

	// MaskCmd sets the whole mask.
	MaskCmd = ishell.Cmd{
		Name:    "mask",
		Aliases: []string{"m"},
		Help:    "HEX",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("mask expected"))
				return
			}
			mask, err := ParseMask(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			if err := sh.ShellFrom(c).Conn.Tx.Set(mask); err != nil {
				c.Err(err)
				return
			}
			sent(c)
		}),
	}

	// AllOffCmd switches every relay off.
	AllOffCmd = ishell.Cmd{
		Name:    "alloff",
		Aliases: []string{"x"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if err := sh.ShellFrom(c).Conn.Tx.Set(0); err != nil {
				c.Err(err)
				return
			}
			sent(c)
		}),
	}

	// StatusCmd shows what's sent and, when reachable, the receiver state.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			if s.Conn != nil {
				sent(c)
			}
			st, err := s.Client.State(context.TODO())
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, st, formatState(st))
		},
	}

	// MapCmd shows the receiver channel map.
	MapCmd = ishell.Cmd{
		Name: "map",
		Help: "",
		Func: func(c *ishell.Context) {
			channels, err := sh.ShellFrom(c).Client.Channels(context.TODO())
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, channels, FormatChannels(channels))
		},
	}

	// RemapCmd replaces the receiver channel map.
	RemapCmd = ishell.Cmd{
		Name: "remap",
		Help: "LINE x13 (in order " + relay.Labels + ")",
		Func: func(c *ishell.Context) {
			a, err := relay.ParseAssignment(strings.Join(c.Args, " "))
			if err != nil {
				c.Err(err)
				return
			}
			if err := sh.ShellFrom(c).Client.Remap(context.TODO(), a); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// RebootCmd restarts the receiver.
	RebootCmd = ishell.Cmd{
		Name: "reboot",
		Help: "",
		Func: func(c *ishell.Context) {
			if err := sh.ShellFrom(c).Client.Reboot(context.TODO()); err != nil {
				c.Err(err)
				return
			}
			c.Println("Rebooting...")
		},
	}
)

func init() {
	sh.AddCmds(
		&OnCmd,
		&OffCmd,
		&MaskCmd,
		&AllOffCmd,
		&StatusCmd,
		&MapCmd,
		&RemapCmd,
		&RebootCmd,
	)
}
