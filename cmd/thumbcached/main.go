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

// Command thumbcached runs the thumbnail store: asset serving, ingestion,
// and render-and-ingest against the configured renderer.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/avatarlab/thumbcache/config"
	"github.com/avatarlab/thumbcache/logger"
	"github.com/avatarlab/thumbcache/server"
)

func main() {
	var (
		opts       config.Options
		loggerOpts logger.Options
	)

	fs := pflag.NewFlagSet("thumbcached", pflag.ExitOnError)
	opts.BindFlags(fs)
	loggerOpts.BindFlags(fs)
	fs.Parse(os.Args[1:])

	log := logger.NewLogger(loggerOpts)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx, &opts, log, reg); err != nil {
		log.Error(err, "server failed")
		os.Exit(1)
	}
}
