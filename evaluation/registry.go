// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package evaluation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry maps metric names to evaluator factories and metric metadata.
type Registry struct {
	mu      sync.RWMutex
	entries map[MetricType]registryEntry
}

type registryEntry struct {
	info    MetricInfo
	factory EvaluatorFactory
}

// NewRegistry creates an empty evaluator registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[MetricType]registryEntry)}
}

// Register registers an evaluator factory for a metric. Re-registering
// replaces the existing entry with a log notice.
func (r *Registry) Register(info MetricInfo, factory EvaluatorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[info.MetricName]; exists {
		log.Info().
			Str("metric", info.MetricName.String()).
			Msg("replacing registered evaluator")
	}
	r.entries[info.MetricName] = registryEntry{info: info, factory: factory}
}

// GetEvaluator constructs an evaluator for the configured metric.
func (r *Registry) GetEvaluator(metric EvalMetric, cfg EvaluatorConfig) (Evaluator, error) {
	r.mu.RLock()
	entry, exists := r.entries[metric.MetricName]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: no evaluator registered for metric %s", ErrNotFound, metric.MetricName)
	}
	return entry.factory(metric, cfg)
}

// RegisteredMetrics returns copies of the metric metadata, sorted by name.
func (r *Registry) RegisteredMetrics() []MetricInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]MetricInfo, 0, len(r.entries))
	for _, entry := range r.entries {
		infos = append(infos, entry.info.Clone())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].MetricName < infos[j].MetricName })
	return infos
}

// IsRegistered reports whether a metric has an evaluator.
func (r *Registry) IsRegistered(metricType MetricType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.entries[metricType]
	return exists
}
