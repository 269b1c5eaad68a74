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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// resultServed is the outcome label for direct lookups.
	resultServed = "served"
	// resultFallback is the outcome label for hits via the recursive
	// bare-filename search.
	resultFallback = "fallback"
	// resultNotFound is the outcome label for misses.
	resultNotFound = "not_found"
	// resultBadRequest is the outcome label for rejected request paths.
	resultBadRequest = "bad_request"
)

type serverMetrics struct {
	// requestsCounter counts asset requests partitioned by outcome.
	requestsCounter *prometheus.CounterVec
}

// newServerMetrics returns a new serverMetrics registered on reg.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	return &serverMetrics{
		requestsCounter: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "thumbcache_asset_requests_total",
				Help: "Total number of asset requests partitioned by outcome.",
			},
			[]string{"result"},
		),
	}
}

// incRequests increments the request count for the given outcome.
func (m *serverMetrics) incRequests(result string) {
	if m == nil {
		return
	}
	m.requestsCounter.WithLabelValues(result).Inc()
}
