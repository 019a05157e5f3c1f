package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"dialbridge/internal/config"
	"dialbridge/internal/daemon"
	"dialbridge/internal/host/rpc"
	"dialbridge/internal/ipc"
	"dialbridge/internal/logging"
	"dialbridge/internal/preflight"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	results := preflight.RunAll(ctx, cfg)
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed", logging.String("check", r.Name), logging.String("detail", r.Detail))
			continue
		}
		logger.Warn("preflight check failed", logging.String("check", r.Name), logging.String("detail", r.Detail))
	}
	if preflight.Fatal(results) {
		log.Fatal("preflight checks failed; see log for details")
	}

	capability := rpc.NewReconnecting(cfg.Host.Socket, time.Duration(cfg.Host.ConnectTimeout)*time.Second)
	defer capability.Close()

	d, err := daemon.New(cfg, capability, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.Paths.Socket, d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Warn("daemon start", logging.Error(err))
	}

	<-ctx.Done()
	logger.Info("dialbridged shutting down")
}
