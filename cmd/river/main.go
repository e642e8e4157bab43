// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is the River reverse-proxy entry point: it loads and
// validates a configuration document, builds a Supervisor over the
// configured Services, and runs until a shutdown or hot-reload signal
// arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"

	"river/internal/audit"
	"river/internal/config"
	"river/internal/hotreload"
	"river/internal/service"
	"river/internal/telemetry"
)

const drainDeadline = 15 * time.Second

func main() {
	var (
		validateOnly  = flag.Bool("validate-configs", false, "parse and validate the configuration document, then exit (0 on success)")
		tomlPath      = flag.String("config-toml", "", "path to a TOML configuration document")
		kdlPath       = flag.String("config-kdl", "", "path to a KDL configuration document")
		threadsPerSvc = flag.Int("threads-per-service", 0, "override system.threads-per-service (positive integer)")
		daemonize     = flag.Bool("daemonize", false, "record daemon mode and write --pidfile (the process does not detach); requires --pidfile")
		pidFile       = flag.String("pidfile", "", "absolute path to the pidfile")
		upgrade       = flag.Bool("upgrade", false, "receive listeners from a running instance over --upgrade-socket (Linux only)")
		upgradeSocket = flag.String("upgrade-socket", "", "absolute path to the upgrade handoff unix socket")
		auditKind     = flag.String("audit-sink", "", "audit trail sink: mock (default), redis, producer (postgres cannot be selected here: no database handle is configured)")
		auditRedis    = flag.String("audit-redis-addr", "", "redis address for --audit-sink=redis")
		metricsAddr   = flag.String("metrics-addr", "", "if set, serve Prometheus /metrics on this address")
	)
	flag.Parse()

	if *tomlPath != "" && *kdlPath != "" {
		log.Fatal("river: --config-toml and --config-kdl are mutually exclusive")
	}
	if *tomlPath == "" && *kdlPath == "" {
		log.Fatal("river: one of --config-toml or --config-kdl is required")
	}
	if *daemonize && *pidFile == "" {
		log.Fatal("river: --daemonize requires --pidfile")
	}
	if *upgrade && *upgradeSocket == "" {
		log.Fatal("river: --upgrade requires --upgrade-socket")
	}
	if *upgrade && runtime.GOOS != "linux" {
		log.Fatalf("river: --upgrade is Linux-only, unsupported on %s", runtime.GOOS)
	}

	format := "toml"
	path := *tomlPath
	if *kdlPath != "" {
		format = "kdl"
		path = *kdlPath
	}

	source, err := config.NewSource(format)
	if err != nil {
		log.Fatalf("river: %v", err)
	}
	doc, err := source.Load(path)
	if err != nil {
		log.Fatalf("river: load config: %v", err)
	}

	if *threadsPerSvc > 0 {
		doc.System.ThreadsPerService = *threadsPerSvc
	}
	if *daemonize {
		doc.System.Daemonize = true
		doc.System.PidFile = *pidFile
	}
	if *upgradeSocket != "" {
		doc.System.UpgradeSocket = *upgradeSocket
	}

	warnings, err := config.Validate(doc)
	for _, w := range warnings {
		log.Printf("river: config warning: %s", w)
	}
	if err != nil {
		log.Fatalf("river: invalid config: %v", err)
	}

	if *validateOnly {
		fmt.Println("river: configuration is valid")
		os.Exit(0)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("river: build logger: %v", err)
	}
	defer logger.Sync()

	sink, err := audit.Build(*auditKind, audit.Options{Logger: logger, RedisAddr: *auditRedis})
	if err != nil {
		log.Fatalf("river: build audit sink: %v", err)
	}

	var inherited map[string]*os.File
	if *upgrade {
		inherited, err = hotreload.Receive(*upgradeSocket)
		if err != nil {
			// spec.md §7: "if descriptor transfer fails, the new process
			// aborts before accepting; the old process continues serving."
			log.Fatalf("river: hot-reload receive failed, aborting before accepting: %v", err)
		}
	}

	sup, err := service.Build(doc, logger, sink, inherited)
	if err != nil {
		log.Fatalf("river: build services: %v", err)
	}
	sup.Start()
	logger.Info("river started", zap.Int("services", len(sup.Services)))

	if *metricsAddr != "" {
		telemetry.Serve(*metricsAddr)
		logger.Info("metrics endpoint started", zap.String("address", *metricsAddr))
	}

	if doc.System.PidFile != "" {
		if err := hotreload.WritePidfile(doc.System.PidFile); err != nil {
			logger.Error("writing pidfile", zap.Error(err))
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-sigCh

	// spec.md §6: "SIGQUIT triggers the hot-reload hand-off if the upgrade
	// socket is populated, otherwise a graceful shutdown. SIGTERM triggers
	// graceful shutdown with the same drain deadline."
	if sig == syscall.SIGQUIT && doc.System.UpgradeSocket != "" {
		logger.Info("SIGQUIT received, handing off listeners", zap.String("socket", doc.System.UpgradeSocket))
		files, err := sup.ListenerFiles()
		if err != nil {
			logger.Error("collecting listener files for handoff", zap.Error(err))
		} else if err := hotreload.Send(doc.System.UpgradeSocket, files); err != nil {
			logger.Error("hot-reload handoff failed, continuing to serve", zap.Error(err))
		} else {
			logger.Info("hot-reload handoff acknowledged by successor")
		}
	} else {
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainDeadline)
	defer cancel()
	if err := sup.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("river stopped")
}
