/*
Copyright 2025 The thumbcache authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avatarlab/thumbcache/arbiter"
	"github.com/avatarlab/thumbcache/config"
	"github.com/avatarlab/thumbcache/store"
)

// Start starts a blocking HTTP server using the provided configuration
// options: artifact reads on the asset root, ingestion and render calls
// under /api/, and, when reg is non-nil, Prometheus metrics on /metrics.
// It supports graceful shutdown via the provided context.
func Start(ctx context.Context, opts *config.Options, log logr.Logger, reg *prometheus.Registry) error {
	if opts == nil {
		return fmt.Errorf("options cannot be nil")
	}

	var registerer prometheus.Registerer
	if reg != nil {
		registerer = reg
	}

	st, err := store.New(opts, registerer)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	client := arbiter.NewClient(opts.ArbiterURL, opts.ArbiterRetries, opts.BaseURL, st)

	mux := http.NewServeMux()
	mux.Handle("/", NewFileServer(st.OutputDir, log, registerer))
	mux.Handle("/api/", NewAPI(st, client, opts.BaseURL, log))
	if reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	server := &http.Server{
		Addr:    opts.StorageAddress,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", opts.StorageAddress, "root", st.OutputDir, "baseURL", st.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
