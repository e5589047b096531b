package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"errors"
	"flag"
	"os"
	"syscall"

	"github.com/golang/glog"

	"github.com/robotalks/relayrx/pkg/env"
	fx "github.com/robotalks/relayrx/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	e := env.NewConfig().MustNewEnv()
	if err := e.Receiver.Start(); err != nil {
		glog.Errorf("start: %v", err)
	}

	runner := fx.NewRunner().HandleSignals()
	ctx, cancel := context.WithCancel(runner.Context)
	defer cancel()
	restart := false
	e.Receiver.OnRestart = func() {
		restart = true
		cancel()
	}

	loopErr := runner.GoWith(ctx, fx.NewLoop().Add(e)).Wait()
	if loopErr != nil {
		glog.Errorf("loop: %v", loopErr)
	}
	if err := e.Shutdown(loopErr); err != nil {
		glog.Errorf("shutdown: %v", err)
	}
	if restart && !errors.Is(loopErr, fx.ErrForcedExit) {
		reexec()
	}
}

func reexec() {
	exe, err := os.Executable()
	if err != nil {
		glog.Errorf("restart: %v", err)
		return
	}
	glog.Info("restarting")
	glog.Flush()
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		glog.Errorf("restart: %v", err)
	}
}
