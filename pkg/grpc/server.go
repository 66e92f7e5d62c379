/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package grpc exposes the standard gRPC health service next to the HTTP API
// so orchestrators can probe the downtime server.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServerOption is a function type that modifies Server configuration.
type ServerOption func(*Server)

const (
	defaultShutdownTimeout = 5 * time.Second
)

// Server wraps a gRPC server carrying the health service.
type Server struct {
	srv             *grpc.Server
	healthCheck     *health.Server
	addr            string
	mu              sync.RWMutex
	services        map[string]struct{}
	serverOpts      []grpc.ServerOption
	shutdownTimeout time.Duration
}

// NewServer creates a new gRPC server listening on addr once started.
func NewServer(addr string, opts ...ServerOption) *Server {
	defaultOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor,
			RecoveryInterceptor,
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     10 * time.Minute,
			MaxConnectionAge:      24 * time.Hour,
			MaxConnectionAgeGrace: 5 * time.Minute,
			Time:                  120 * time.Second,
			Timeout:               20 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             120 * time.Second,
			PermitWithoutStream: true,
		}),
	}

	s := &Server{
		addr:            addr,
		services:        make(map[string]struct{}),
		serverOpts:      defaultOpts,
		shutdownTimeout: defaultShutdownTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.srv = grpc.NewServer(s.serverOpts...)
	s.healthCheck = health.NewServer()

	healthpb.RegisterHealthServer(s.srv, s.healthCheck)
	reflection.Register(s.srv)

	return s
}

// WithServerOptions adds gRPC server options.
func WithServerOptions(opt ...grpc.ServerOption) ServerOption {
	return func(s *Server) {
		s.serverOpts = append(s.serverOpts, opt...)
	}
}

// WithShutdownTimeout bounds how long Stop waits for in-flight calls.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// SetServing marks a named service as serving on the health endpoint.
// The empty name reports overall server health.
func (s *Server) SetServing(service string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.services[service] = struct{}{}
	s.healthCheck.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return s.Serve(lis)
}

// Serve accepts connections on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	log.Infof("gRPC health server listening on %s", lis.Addr())

	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

// Stop marks every service as not serving and drains the server. It falls
// back to a hard stop when ctx ends or the shutdown timeout elapses.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	for service := range s.services {
		s.healthCheck.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	}

	stopped := make(chan struct{})

	go func() {
		s.srv.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("gRPC server stopped gracefully")
	case <-ctx.Done():
		log.Warn("gRPC server shutdown timed out, forcing stop")
		s.srv.Stop()
	}
}

// LoggingInterceptor logs RPC calls.
func LoggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	log.WithFields(log.Fields{
		"method":   info.FullMethod,
		"duration": time.Since(start),
	}).WithError(err).Debug("gRPC call")

	return resp, err
}

// RecoveryInterceptor handles panics in RPC handlers.
func RecoveryInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic in %s: %v", info.FullMethod, r)

			err = errInternalError
		}
	}()

	return handler(ctx, req)
}
