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

package config

import (
	"fmt"
	"net"
	"os"
)

// Options contains configuration settings for the thumbnail store and
// asset server.
type Options struct {
	// OutputDir is the path to the directory where base artifacts and
	// derivatives are stored and served from.
	OutputDir string `json:"outputDir"`

	// StorageAddress is the host and port the asset server will bind to.
	StorageAddress string `json:"storageAddress"`

	// BaseURL is the externally visible base URL used to compose absolute
	// artifact URLs. When empty, it is derived from StorageAddress.
	BaseURL string `json:"baseURL"`

	// ArbiterURL is the base URL of the external avatar renderer.
	ArbiterURL string `json:"arbiterURL"`

	// ArbiterRetries is the number of retries performed by the renderer
	// HTTP client on transport or 5xx failures. Zero disables retries,
	// leaving retry policy to the caller.
	ArbiterRetries int `json:"arbiterRetries"`
}

// ResolveOutputDir returns the output directory resolved first-match-wins
// from the ordered candidates: the explicit override, the configured value,
// the primary environment variable, the legacy environment variable, and
// finally the built-in default.
func (o *Options) ResolveOutputDir(override string) string {
	candidates := []string{
		override,
		o.OutputDir,
		os.Getenv(envOutputDir),
		os.Getenv(envOutputDirLegacy),
	}
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return defaultOutputDir
}

// GetAdvertisedBaseURL returns the base URL the asset server advertises to
// clients. If BaseURL is set, it is returned as is. Otherwise, it derives the
// URL from StorageAddress, replacing empty or wildcard hosts with the
// system's hostname.
func (o *Options) GetAdvertisedBaseURL() (string, error) {
	if o.BaseURL != "" {
		return o.BaseURL, nil
	}
	host, port, err := net.SplitHostPort(o.StorageAddress)
	if err != nil {
		return "", fmt.Errorf("invalid storage address %q: %w", o.StorageAddress, err)
	}
	switch host {
	case "":
		host = "localhost"
	case "0.0.0.0":
		host = os.Getenv("HOSTNAME")
		if host == "" {
			hn, err := os.Hostname()
			if err != nil {
				return "", fmt.Errorf("0.0.0.0 specified in storage addr but hostname is invalid: %w", err)
			}
			host = hn
		}
	}
	return "http://" + net.JoinHostPort(host, port), nil
}
