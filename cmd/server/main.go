// Copyright 2026 The channelforge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the channelforge server, the
// admin backend that validates and persists gateway channel
// configurations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/channelforge/internal/api"
	"github.com/traylinx/channelforge/internal/api/handlers/management"
	"github.com/traylinx/channelforge/internal/buildinfo"
	"github.com/traylinx/channelforge/internal/catalog"
	"github.com/traylinx/channelforge/internal/config"
	"github.com/traylinx/channelforge/internal/logging"
	"github.com/traylinx/channelforge/internal/store"
)

func init() {
	logging.SetupBaseLogger()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("channelforge %s (%s, built %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	// Optional .env alongside the binary; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logging.SetDebug(cfg.Debug)
	if err := logging.ConfigureLogOutput(cfg.LoggingToFile, "logs", cfg.LogsMaxTotalSizeMB); err != nil {
		log.Fatalf("failed to configure log output: %v", err)
	}

	cat, err := catalog.NewFileCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}
	defer cat.Close()
	if err := cat.Watch(); err != nil {
		log.Warnf("catalog hot reload disabled: %v", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open channel store: %v", err)
	}
	defer st.Close()

	handler := management.NewHandler(st, cat, cat)
	server := api.New(cfg, handler)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Handler(),
	}

	go func() {
		log.Infof("channelforge %s listening on %s", buildinfo.Version, addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Errorf("shutdown error: %v", err)
	}
}
