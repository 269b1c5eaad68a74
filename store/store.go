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

// Package store persists image artifacts on the local filesystem, addressed
// by the SHA-256 content hash of their raw bytes. Writes are idempotent:
// ingesting the same content twice resolves to the same file and the second
// write is skipped.
package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avatarlab/thumbcache/config"
	"github.com/avatarlab/thumbcache/imgformat"
)

// Store manages content-addressed image artifacts under OutputDir.
type Store struct {
	// OutputDir is the local directory path where artifacts are stored.
	OutputDir string

	// BaseURL is the base URL used to compose absolute artifact URLs.
	BaseURL string

	metrics *storeMetrics
}

// Result describes a stored artifact.
type Result struct {
	// Hash is the lowercase hex SHA-256 digest of the artifact bytes.
	Hash string `json:"hash"`

	// Format is the detected image format.
	Format imgformat.Format `json:"format"`

	// FileName is the artifact file name, '<hash>.<ext>'.
	FileName string `json:"fileName"`

	// FullPath is the absolute or base-relative path of the stored file.
	FullPath string `json:"fullPath"`

	// AlreadyExisted is true when an artifact with the same content hash
	// was already present and no write was performed.
	AlreadyExisted bool `json:"alreadyExisted"`
}

// New creates the store using the provided configuration options.
// The output directory is created if absent. If reg is non-nil, ingest
// metrics are registered on it.
func New(opts *config.Options, reg prometheus.Registerer) (*Store, error) {
	if opts == nil {
		return nil, fmt.Errorf("options cannot be nil")
	}

	outputDir := opts.ResolveOutputDir("")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	baseURL, err := opts.GetAdvertisedBaseURL()
	if err != nil {
		return nil, fmt.Errorf("failed to get advertised base URL: %w", err)
	}

	var m *storeMetrics
	if reg != nil {
		m = newStoreMetrics(reg)
	}

	return &Store{
		OutputDir: outputDir,
		BaseURL:   baseURL,
		metrics:   m,
	}, nil
}

// Ingest decodes base64 image content and stores it by content hash.
// A data-URI prefix, everything up to and including the first comma, is
// stripped before decoding. Malformed base64 returns an InvalidInputError.
func (s *Store) Ingest(ctx context.Context, encoded string) (*Result, error) {
	if strings.TrimSpace(encoded) == "" {
		return nil, &InvalidInputError{Reason: "base64 input is required"}
	}

	if i := strings.Index(encoded, ","); i >= 0 {
		encoded = encoded[i+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &InvalidInputError{Reason: "malformed base64", Err: err}
	}

	return s.IngestBytes(ctx, raw)
}

// IngestBytes stores raw image bytes by content hash. The format is detected
// from the byte signature, never from caller hints. If a file for the hash
// already exists the write is skipped and Result.AlreadyExisted is true.
// Otherwise the bytes are committed via a temp file and an atomic rename, so
// concurrent readers never observe a partial write. Cancellation before the
// rename leaves no file at the final path.
func (s *Store) IngestBytes(ctx context.Context, raw []byte) (*Result, error) {
	if len(raw) == 0 {
		return nil, &InvalidInputError{Reason: "empty content"}
	}

	format := imgformat.Detect(raw)
	hash := digest.SHA256.FromBytes(raw).Encoded()
	fileName := hash + "." + format.Ext()
	fullPath := filepath.Join(s.OutputDir, fileName)

	res := &Result{
		Hash:     hash,
		Format:   format,
		FileName: fileName,
		FullPath: fullPath,
	}

	if fi, err := os.Lstat(fullPath); err == nil && fi.Mode().IsRegular() {
		res.AlreadyExisted = true
		s.metrics.incIngests(ingestEventDedupHit)
		return res, nil
	}

	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := s.commit(ctx, fullPath, raw); err != nil {
		return nil, err
	}
	s.metrics.incIngests(ingestEventStored)
	return res, nil
}

// commit writes raw to '<path>.tmp' and promotes it to path with a rename.
// The rename is the commit point: a cancelled context is honored before it,
// never after.
func (s *Store) commit(ctx context.Context, path string, raw []byte) (err error) {
	tmpPath := path + ".tmp"

	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// A concurrent ingest of identical bytes shares the temp path and
		// may have promoted it already. The committed content is the same,
		// so an existing target means the write succeeded.
		if fi, statErr := os.Lstat(path); statErr == nil && fi.Mode().IsRegular() {
			return nil
		}
		// On platforms where rename does not replace, clear the stale
		// target and retry once. The content behind a given hash never
		// changes, so replacing it is a no-op for readers.
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("failed to commit artifact: %w", err)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return fmt.Errorf("failed to commit artifact: %w", err)
		}
	}
	return nil
}

// URLFor composes the absolute URL for a stored file name. The base URL
// resolution order is: the explicit override, then the configured base URL.
// With neither set, the file name is returned as a relative reference.
func (s *Store) URLFor(fileName, overrideBaseURL string) string {
	base := overrideBaseURL
	if base == "" {
		base = s.BaseURL
	}
	if base == "" {
		return fileName
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(fileName, "/")
}
