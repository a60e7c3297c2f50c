package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/noah-isme/canvas-gradebook/pkg/config"
	"github.com/noah-isme/canvas-gradebook/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Log.Format == "" || cfg.Log.Format == "json" {
		cfg.Log.Format = "console"
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, logr, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	_ = logr.Sync()
	os.Exit(code)
}
