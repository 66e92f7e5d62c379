// Package lifecycle runs the HTTP API and the gRPC health server side by side
// and tears both down on a signal, a server failure or context cancellation.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/downtimeradar/pkg/grpc"
	log "github.com/sirupsen/logrus"
)

const (
	ServiceName        = "downtimeradar.Downtime"
	DefaultReadTimeout = 30 * time.Second
	ShutdownTimeout    = 10 * time.Second
)

// ServerOptions holds configuration for running the server.
type ServerOptions struct {
	ListenAddr      string
	GRPCAddr        string
	Handler         http.Handler
	ShutdownTimeout time.Duration
}

// RunServer serves opts.Handler over HTTP and, when GRPCAddr is set, the gRPC
// health service. It blocks until shutdown completes.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = ShutdownTimeout
	}

	httpServer := &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           opts.Handler,
		ReadHeaderTimeout: DefaultReadTimeout,
	}

	errChan := make(chan error, 2)

	go func() {
		log.Infof("Starting HTTP server on %s", opts.ListenAddr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcServer *grpc.Server

	if opts.GRPCAddr != "" {
		grpcServer = grpc.NewServer(opts.GRPCAddr, grpc.WithShutdownTimeout(timeout))
		grpcServer.SetServing("")
		grpcServer.SetServing(ServiceName)

		go func() {
			if err := grpcServer.Start(); err != nil {
				errChan <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	return handleShutdown(ctx, timeout, httpServer, grpcServer, errChan)
}

func handleShutdown(
	ctx context.Context, timeout time.Duration, httpServer *http.Server, grpcServer *grpc.Server, errChan chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	defer signal.Stop(sigChan)

	var runErr error

	select {
	case sig := <-sigChan:
		log.Infof("Received signal %v, initiating shutdown", sig)
	case err := <-errChan:
		log.Errorf("Received error: %v, initiating shutdown", err)

		runErr = err
	case <-ctx.Done():
		log.Info("Context canceled, initiating shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if grpcServer != nil {
		grpcServer.Stop(shutdownCtx)
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error during HTTP shutdown: %v", err)

		if runErr == nil {
			runErr = fmt.Errorf("shutdown error: %w", err)
		}
	}

	return runErr
}
