// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/google/gops/agent"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/relay"
	"github.com/theatrus/statsrelay/internal/runtimeEnv"
)

// version is set via -ldflags "-X main.version=..." at build time.
var version = "development"

const shutdownTimeout = 5 * time.Second

func main() {
	cliInit()

	cclog.Init(flagLogLevel, flagLogDateTime)

	if flagVersion {
		fmt.Printf("statsrelay %s\n", version)
		return
	}

	// See https://github.com/google/gops (runtime overhead is almost zero)
	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			cclog.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := runtimeEnv.LoadEnv("./.env"); err != nil && !os.IsNotExist(err) {
		cclog.Fatalf("parsing './.env' file failed: %s", err.Error())
	}

	if flagValidateConfig {
		if _, err := config.Load(flagConfigFile); err != nil {
			cclog.Errorf("config validation failed: %s", err.Error())
			os.Exit(1)
		}
		fmt.Println("config is valid")
		return
	}

	r, err := relay.New(flagConfigFile)
	if err != nil {
		cclog.Fatalf("startup failed: %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			cclog.Infof("SIGHUP received, reloading %s", flagConfigFile)
			if err := r.Reload(); err != nil {
				cclog.Errorf("reload failed, keeping previous config running: %s", err.Error())
			}
		}
	}()

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigterm
		runtimeEnv.SystemdNotifiy(false, "shutting down")
		cancel()
	}()

	runtimeEnv.SystemdNotifiy(true, "running")
	cclog.Infof("statsrelay %s starting with config %s", version, flagConfigFile)
	r.Serve(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	r.Stop(stopCtx)

	signal.Stop(sighup)
	close(sighup)
	cclog.Infof("statsrelay stopped cleanly")
}
