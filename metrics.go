// go-nfcsession
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfcsession.
//
// go-nfcsession is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfcsession is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfcsession; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package nfcsession

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job results used as metric labels
const (
	resultOK    = "ok"
	resultError = "error"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	jobsTotal       *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	retrySlotWrites prometheus.Counter
	loopIterations  *prometheus.CounterVec
	droppedTags     prometheus.Counter
}

// NewMetrics creates the engine collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		jobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nfcsession_jobs_total",
			Help: "Total number of completed session jobs, by kind and result.",
		}, []string{"kind", "result"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nfcsession_job_duration_seconds",
			Help:    "Time a session job held the radio, by kind.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		}, []string{"kind"}),
		retrySlotWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "nfcsession_retry_slot_writes_total",
			Help: "Total number of jobs parked in the retry slot while a loop was stopping.",
		}),
		loopIterations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nfcsession_loop_iterations_total",
			Help: "Total number of completed loop iterations, by kind.",
		}, []string{"kind"}),
		droppedTags: factory.NewCounter(prometheus.CounterOpts{
			Name: "nfcsession_dropped_tags_total",
			Help: "Total number of tags dropped because a tag was already being processed.",
		}),
	}
}

func (m *Metrics) observeJob(kind JobKind, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultError
	}
	m.jobsTotal.WithLabelValues(kind.String(), result).Inc()
	m.jobDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

func (m *Metrics) retrySlotWrite() {
	if m == nil {
		return
	}
	m.retrySlotWrites.Inc()
}

func (m *Metrics) loopIteration(kind JobKind) {
	if m == nil {
		return
	}
	m.loopIterations.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) droppedTag() {
	if m == nil {
		return
	}
	m.droppedTags.Inc()
}
