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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-logr/logr"

	"github.com/avatarlab/thumbcache/arbiter"
	"github.com/avatarlab/thumbcache/store"
)

// maxIngestBody caps the ingest request body size.
const maxIngestBody = 64 << 20

// API exposes the write path over HTTP: direct base64 ingestion and
// render-and-ingest against the external renderer.
type API struct {
	store   *store.Store
	client  *arbiter.Client
	baseURL string
	log     logr.Logger
}

// NewAPI returns the write-path handler. baseURL is the configured external
// base URL for composed artifact URLs; when empty, it is inferred from each
// inbound request.
func NewAPI(st *store.Store, client *arbiter.Client, baseURL string, log logr.Logger) *API {
	return &API{
		store:   st,
		client:  client,
		baseURL: baseURL,
		log:     log,
	}
}

// ingestRequest is the body of an ingestion call.
type ingestRequest struct {
	// Base64 is the base64-encoded image content, with or without a
	// data-URI prefix.
	Base64 string `json:"base64"`
}

// artifactResponse describes a stored artifact to API callers. Filesystem
// paths are never exposed.
type artifactResponse struct {
	Hash           string `json:"hash"`
	FileName       string `json:"fileName"`
	URL            string `json:"url"`
	AlreadyExisted bool   `json:"alreadyExisted"`
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/thumbnails":
		a.handleIngest(w, r)
	case "/api/render":
		a.handleRender(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (a *API) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ingestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	res, err := a.store.Ingest(r.Context(), req.Base64)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeArtifact(w, r, res)
}

func (a *API) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	subjectID, err := strconv.ParseInt(q.Get("userId"), 10, 64)
	if err != nil {
		http.Error(w, "userId must be an integer", http.StatusBadRequest)
		return
	}

	typ := arbiter.ParseRenderType(q.Get("type"))
	// Callers predating the type parameter send a numeric format ID.
	if q.Get("type") == "" && q.Get("thumbnailFormatId") != "" {
		id, err := strconv.Atoi(q.Get("thumbnailFormatId"))
		if err != nil {
			http.Error(w, "thumbnailFormatId must be an integer", http.StatusBadRequest)
			return
		}
		typ = arbiter.TypeForLegacyFormatID(id)
	}

	width, _ := strconv.Atoi(q.Get("x"))
	height, _ := strconv.Atoi(q.Get("y"))

	res, err := a.client.RenderAndIngest(r.Context(), typ, subjectID, width, height)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeArtifact(w, r, res)
}

func (a *API) writeArtifact(w http.ResponseWriter, r *http.Request, res *store.Result) {
	base := a.baseURL
	if base == "" {
		base = BaseURLFromRequest(r)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(artifactResponse{
		Hash:           res.Hash,
		FileName:       res.FileName,
		URL:            a.store.URLFor(res.FileName, base),
		AlreadyExisted: res.AlreadyExisted,
	})
}

// writeError maps domain errors to status codes: invalid input is the
// caller's fault, renderer failures are an upstream fault, anything else is
// internal.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidErr *store.InvalidInputError
	var unavailableErr *arbiter.UnavailableError
	var protocolErr *arbiter.ProtocolError

	switch {
	case errors.As(err, &invalidErr):
		http.Error(w, invalidErr.Error(), http.StatusBadRequest)
	case errors.As(err, &unavailableErr), errors.As(err, &protocolErr):
		a.log.Error(err, "renderer request failed", "path", r.URL.Path)
		http.Error(w, "renderer unavailable", http.StatusBadGateway)
	default:
		a.log.Error(err, "request failed", "path", r.URL.Path)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
