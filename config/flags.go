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
	"os"

	"github.com/spf13/pflag"
)

const (
	flagOutputDir      = "output-dir"
	envOutputDir       = "THUMBCACHE_OUTPUT_DIR"
	envOutputDirLegacy = "THUMBNAIL_OUTPUT_DIRECTORY"
	defaultOutputDir   = "thumbnails"

	flagStorageAddress    = "storage-addr"
	envStorageAddress     = "STORAGE_ADDRESS"
	defaultStorageAddress = ":9090"

	flagBaseURL = "base-url"
	envBaseURL  = "THUMBCACHE_BASE_URL"

	flagArbiterURL    = "arbiter-url"
	envArbiterURL     = "ARBITER_URL"
	defaultArbiterURL = "http://localhost:5000"

	flagArbiterRetries    = "arbiter-retries"
	defaultArbiterRetries = 0
)

// BindFlags will parse the given pflag.FlagSet and set the Options accordingly.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.OutputDir, flagOutputDir,
		envOrDefault(envOutputDir, envOrDefault(envOutputDirLegacy, defaultOutputDir)),
		"The path to the directory where thumbnail artifacts will be stored.")

	fs.StringVar(&o.StorageAddress, flagStorageAddress,
		envOrDefault(envStorageAddress, defaultStorageAddress),
		"The address the asset server will bind to.")

	fs.StringVar(&o.BaseURL, flagBaseURL,
		envOrDefault(envBaseURL, ""),
		"The externally visible base URL used to compose absolute artifact URLs.")

	fs.StringVar(&o.ArbiterURL, flagArbiterURL,
		envOrDefault(envArbiterURL, defaultArbiterURL),
		"The base URL of the avatar renderer service.")

	fs.IntVar(&o.ArbiterRetries, flagArbiterRetries,
		defaultArbiterRetries,
		"The number of retries for renderer requests. Zero disables retries.")
}

// envOrDefault returns the value of the environment variable named by the key.
// If the variable is empty or not present, it returns the defaultValue instead.
func envOrDefault(envName, defaultValue string) string {
	ret := os.Getenv(envName)
	if ret != "" {
		return ret
	}

	return defaultValue
}
