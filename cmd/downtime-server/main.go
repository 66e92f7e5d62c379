package main

import (
	"context"
	"flag"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/carverauto/downtimeradar/pkg/api"
	"github.com/carverauto/downtimeradar/pkg/config"
	"github.com/carverauto/downtimeradar/pkg/core"
	"github.com/carverauto/downtimeradar/pkg/lifecycle"
	"github.com/carverauto/downtimeradar/pkg/snapshot"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON or YAML)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		return err
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)

	store, err := snapshot.New(&cfg.Store)
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf("Failed to close snapshot store: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := core.OptionsFromConfig(cfg, reg)
	svc := core.NewService(store, &opts)

	apiServer := api.NewAPIServer(svc, api.Options{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		Registry:          reg,
	})

	log.WithFields(log.Fields{
		"backend": cfg.Store.Backend,
		"path":    cfg.Store.Path,
	}).Info("Snapshot store ready")

	return lifecycle.RunServer(context.Background(), &lifecycle.ServerOptions{
		ListenAddr:      cfg.ListenAddr,
		GRPCAddr:        cfg.GrpcAddr,
		Handler:         apiServer.Handler(),
		ShutdownTimeout: time.Duration(cfg.ShutdownTimeout),
	})
}
