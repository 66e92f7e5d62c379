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

// Package api pkg/api/server.go serves the downtime JSON API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carverauto/downtimeradar/pkg/core"
	httpx "github.com/carverauto/downtimeradar/pkg/http"
)

const metricsNamespace = "downtimeradar"

// Options configures an APIServer.
type Options struct {
	// RequestsPerSecond and Burst throttle the upload and reset routes.
	RequestsPerSecond float64
	Burst             int
	// Registry backs /metrics; nil disables the endpoint and HTTP metrics.
	Registry *prometheus.Registry
}

type APIServer struct {
	svc    core.DowntimeService
	router *mux.Router
	opts   Options
}

func NewAPIServer(svc core.DowntimeService, opts Options) *APIServer {
	s := &APIServer{
		svc:    svc,
		router: mux.NewRouter(),
		opts:   opts,
	}
	s.setupRoutes()

	return s
}

func (s *APIServer) setupRoutes() {
	s.router.Use(httpx.LoggingMiddleware)

	if s.opts.Registry != nil {
		m := httpx.NewMetrics(metricsNamespace, s.opts.Registry)
		s.router.Use(mux.MiddlewareFunc(m.Middleware(routeTemplate)))
		s.router.Handle("/metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{})).Methods("GET")
	}

	limited := httpx.RateLimit(s.opts.RequestsPerSecond, s.opts.Burst)

	// Weekly snapshots
	s.router.Handle("/api/weeks/{week:[0-9]+}", limited(http.HandlerFunc(s.uploadWeek))).Methods("POST")
	s.router.HandleFunc("/api/weeks", s.getWeeks).Methods("GET")
	s.router.Handle("/api/weeks", limited(http.HandlerFunc(s.resetWeeks))).Methods("DELETE")
	s.router.HandleFunc("/api/weeks/{week:[0-9]+}", s.getWeek).Methods("GET")

	// Per-week analysis
	s.router.HandleFunc("/api/weeks/{week:[0-9]+}/pareto", s.getPareto).Methods("GET")
	s.router.HandleFunc("/api/weeks/{week:[0-9]+}/stops", s.getStops).Methods("GET")
	s.router.HandleFunc("/api/weeks/{week:[0-9]+}/machines", s.getMachines).Methods("GET")
	s.router.HandleFunc("/api/weeks/{week:[0-9]+}/components", s.getComponents).Methods("GET")

	// Indicators across weeks
	s.router.HandleFunc("/api/metrics/weekly", s.getWeeklyMetrics).Methods("GET")
	s.router.HandleFunc("/api/metrics/monthly", s.getMonthlyMetrics).Methods("GET")
	s.router.HandleFunc("/api/metrics/export.xlsx", s.exportMetrics).Methods("GET")
	s.router.HandleFunc("/api/compare/top", s.getTopFailures).Methods("GET")

	s.router.HandleFunc("/api/ws", s.serveChanges).Methods("GET")
}

// Handler returns the routed handler. CORS wraps the router so preflight
// requests are answered for every route.
func (s *APIServer) Handler() http.Handler {
	return httpx.CommonMiddleware(s.router)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}

	return "unmatched"
}
