package main

import (
	"github.com/robotalks/relayrx/pkg/cli/sh"
	"github.com/robotalks/relayrx/pkg/transmitter"

	_ "github.com/robotalks/relayrx/pkg/cli/cmds/relays"
)

//go-build: CGO_ENABLED=0

func init() {
	transmitter.SetupFlags()
}

func main() {
	sh.Main()
}
