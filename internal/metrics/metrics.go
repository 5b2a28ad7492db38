// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics records run progress as Prometheus metrics.
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudwego/archgen/internal/log"
	"github.com/cloudwego/archgen/internal/pipeline"
)

const namespace = "archgen"

// Observer is a pipeline.Observer backed by its own registry.
type Observer struct {
	pipeline.NopObserver

	reg *prometheus.Registry

	stepRuns     *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	transitions  *prometheus.CounterVec
	runs         *prometheus.CounterVec
	iterations   prometheus.Histogram
}

var _ pipeline.Observer = (*Observer)(nil)

func NewObserver() *Observer {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Observer{
		reg: reg,
		stepRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_runs_total",
			Help:      "Step executions by step and outcome",
		}, []string{"step", "status"}),
		stepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Step wall time in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
		}, []string{"step"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Stage transitions by edge and reason",
		}, []string{"from", "to", "reason"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by final status and test status",
		}, []string{"status", "tests"}),
		iterations: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_iterations",
			Help:      "Code generation iterations per finished run",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
	}
}

func (o *Observer) OnStepEnd(_ context.Context, rec pipeline.StepRecord, _ *pipeline.RunState) {
	o.stepRuns.WithLabelValues(rec.Step, string(rec.Status)).Inc()
	o.stepDuration.WithLabelValues(rec.Step).Observe(rec.EndedAt.Sub(rec.StartedAt).Seconds())
}

func (o *Observer) OnTransition(_ context.Context, t pipeline.Transition, _ *pipeline.RunState) {
	o.transitions.WithLabelValues(string(t.From), string(t.To), t.Reason).Inc()
}

func (o *Observer) OnTerminate(_ context.Context, st *pipeline.RunState, _ error) {
	tests := string(st.TestStatus)
	if tests == "" {
		tests = "none"
	}
	o.runs.WithLabelValues(string(st.Status), tests).Inc()
	o.iterations.Observe(float64(st.Iterations))
}

// Registry exposes the underlying registry.
func (o *Observer) Registry() *prometheus.Registry { return o.reg }

// Handler serves the metrics in the Prometheus exposition format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.reg, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current values for the node exporter textfile
// collector.
func (o *Observer) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, o.reg)
}

// Serve exposes /metrics on addr until ctx is done.
func (o *Observer) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", o.Handler())
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("metrics listening on http://%s/metrics", ln.Addr())
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server: %v", err)
		}
	}()
	return nil
}
