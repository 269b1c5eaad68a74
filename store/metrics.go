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

package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// ingestEventStored is the event label for ingests that wrote a new
	// artifact.
	ingestEventStored = "stored"
	// ingestEventDedupHit is the event label for ingests that resolved to
	// an existing artifact without writing.
	ingestEventDedupHit = "dedup_hit"
)

type storeMetrics struct {
	// ingestsCounter counts ingest operations partitioned by event type.
	ingestsCounter *prometheus.CounterVec
}

// newStoreMetrics returns a new storeMetrics registered on reg.
func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	return &storeMetrics{
		ingestsCounter: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "thumbcache_ingests_total",
				Help: "Total number of artifact ingests partitioned by event type.",
			},
			[]string{"event_type"},
		),
	}
}

// incIngests increments the ingest count for the given event type.
func (m *storeMetrics) incIngests(event string) {
	if m == nil {
		return
	}
	m.ingestsCounter.WithLabelValues(event).Inc()
}
