/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package monitor exposes the daemon's lifecycle to the outside: prometheus
// metrics, an HTTP status endpoint and a configuration file watcher.
// monitor 包向外部暴露守护进程的生命周期：prometheus 指标、HTTP 状态端点以及配置文件监听。
package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noso/nosod/internal/lifecycle"
)

const namespace = "nosod"

// Label constants for metrics
const (
	LabelFrom   = "from"
	LabelTo     = "to"
	LabelReason = "reason"
)

// Metrics records lifecycle notifications as prometheus metrics
// Metrics 将生命周期通知记录为 prometheus 指标
type Metrics struct {
	state            prometheus.Gauge
	transitions      *prometheus.CounterVec
	shutdownRequests *prometheus.CounterVec
	ticks            prometheus.Counter
	configWarnings   prometheus.Counter
	shutdownDuration prometheus.Histogram

	registered bool
}

var _ lifecycle.Observer = (*Metrics)(nil)

// NewMetrics creates and registers the lifecycle metrics.
// If registry is nil, metrics are created but not registered.
// NewMetrics 创建并注册生命周期指标，registry 为 nil 时只创建不注册。
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "state",
			Help:      "Current lifecycle state (0 uninitialized .. 4 terminated)",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Total number of lifecycle state transitions",
		}, []string{LabelFrom, LabelTo}),
		shutdownRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "shutdown_requests_total",
			Help:      "Shutdown requests observed by the run loop",
		}, []string{LabelReason}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "ticks_total",
			Help:      "Run loop iterations",
		}),
		configWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "warnings_total",
			Help:      "Configuration problems recovered by falling back to defaults",
		}),
		shutdownDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "shutdown_duration_seconds",
			Help:      "Time spent in the cleanup sequence",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		}),
	}

	if registry != nil {
		registry.MustRegister(
			m.state,
			m.transitions,
			m.shutdownRequests,
			m.ticks,
			m.configWarnings,
			m.shutdownDuration,
		)
		m.registered = true
	}
	return m
}

// StateChanged records a transition and the new state
func (m *Metrics) StateChanged(from, to lifecycle.State) {
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
	m.state.Set(float64(to))
}

// ShutdownRequested counts a shutdown request by reason
func (m *Metrics) ShutdownRequested(reason lifecycle.StopReason) {
	m.shutdownRequests.WithLabelValues(reason.String()).Inc()
}

// Tick counts a run loop iteration
func (m *Metrics) Tick() {
	m.ticks.Inc()
}

// ConfigWarnings adds recovered configuration problems
func (m *Metrics) ConfigWarnings(n int) {
	if n > 0 {
		m.configWarnings.Add(float64(n))
	}
}

// ShutdownCompleted observes how long cleanup took
func (m *Metrics) ShutdownCompleted(d time.Duration) {
	m.shutdownDuration.Observe(d.Seconds())
}

// IsRegistered reports whether the metrics were registered with a registry
func (m *Metrics) IsRegistered() bool {
	return m.registered
}
