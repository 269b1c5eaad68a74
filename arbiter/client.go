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

// Package arbiter talks to the external avatar renderer and feeds its output
// into the content-addressed store. The renderer is an opaque service that
// turns (type, subject id, dimensions) into encoded image bytes.
package arbiter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/avatarlab/thumbcache/store"
)

// maxResponseSize limits how much of a renderer response is read.
// Renders are single images; anything larger is a protocol violation.
const maxResponseSize = 64 << 20

// Client holds the HTTP client used to request avatar renders.
type Client struct {
	baseURL     string
	baseURLHint string
	httpClient  *retryablehttp.Client
	store       *store.Store
}

// NewClient configures the renderer client. retries is the number of
// automatic retries on transport and 5xx failures; zero disables them,
// leaving retry policy to the caller. baseURLHint, when non-empty, is
// forwarded to the renderer so it can compose callback URLs.
func NewClient(arbiterURL string, retries int, baseURLHint string, st *store.Store) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryWaitMin = 2 * time.Second
	httpClient.RetryWaitMax = 30 * time.Second
	httpClient.RetryMax = retries
	httpClient.Logger = nil

	return &Client{
		baseURL:     strings.TrimRight(arbiterURL, "/"),
		baseURLHint: baseURLHint,
		httpClient:  httpClient,
		store:       st,
	}
}

// Render requests an avatar render and returns the base64 payload extracted
// from the renderer response. width and height override the type's default
// dimensions when positive.
func (c *Client) Render(ctx context.Context, typ RenderType, subjectID int64, width, height int) (string, error) {
	if width <= 0 || height <= 0 {
		dw, dh := typ.DefaultDimensions()
		if width <= 0 {
			width = dw
		}
		if height <= 0 {
			height = dh
		}
	}

	q := url.Values{}
	q.Set("type", string(typ))
	q.Set("userId", strconv.FormatInt(subjectID, 10))
	q.Set("x", strconv.Itoa(width))
	q.Set("y", strconv.Itoa(height))
	if c.baseURLHint != "" {
		q.Set("baseUrl", c.baseURLHint)
	}
	requestURL := c.baseURL + "/renderavatar?" + q.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &UnavailableError{Status: resp.Status}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &UnavailableError{Err: err}
	}

	return extractPayload(raw)
}

// RenderAndIngest requests a render and stores the result by content hash.
// The renderer output always passes through the store, so byte-identical
// renders deduplicate to a single artifact.
func (c *Client) RenderAndIngest(ctx context.Context, typ RenderType, subjectID int64, width, height int) (*store.Result, error) {
	payload, err := c.Render(ctx, typ, subjectID, width, height)
	if err != nil {
		return nil, err
	}
	return c.store.Ingest(ctx, payload)
}
