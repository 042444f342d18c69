// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package admin implements the relay's out-of-core HTTP surface
// (spec.md §6): "GET /metrics returns Prometheus text of the internal
// scope", plus a liveness probe for orchestrators.
package admin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/scope"
)

// Server is the admin HTTP server: metrics exposition and health.
type Server struct {
	httpServer *http.Server
}

// New builds a Server bound to cfg.Port. Registration is eager; the
// caller starts it with Serve.
func New(cfg config.AdminConfig, collector *scope.Collector) *Server {
	r := mux.NewRouter()
	r.HandleFunc("/metrics", func(rw http.ResponseWriter, req *http.Request) {
		text, err := collector.PrometheusText()
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		rw.Write(text)
	}).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	r.Use(handlers.CompressHandler)
	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))

	logged := handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, params handlers.LogFormatterParams) {
		cclog.Debugf("admin: %s %s (%d, %dms)",
			params.Request.Method, params.URL.RequestURI(), params.StatusCode,
			time.Since(params.TimeStamp).Milliseconds())
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         fmtAddr(cfg.Port),
			Handler:      logged,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func fmtAddr(port uint16) string {
	if port == 0 {
		port = 9090
	}
	return fmt.Sprintf(":%d", port)
}

// Serve blocks until ctx is cancelled or the server hits a fatal
// setup error.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
