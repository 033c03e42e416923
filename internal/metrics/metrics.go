// Package metrics counts storage, file and auth operations in a private
// Prometheus registry. Nothing is served; the CLI can dump the text format.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "tinkuji"

type Recorder struct {
	registry *prometheus.Registry

	dbQueries    *prometheus.CounterVec
	fileOps      *prometheus.CounterVec
	authAttempts *prometheus.CounterVec
	sweptFiles   *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		dbQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_queries_total",
				Help:      "Repository statements by entity, operation and result.",
			},
			[]string{"entity", "op", "result"},
		),
		fileOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "file_operations_total",
				Help:      "File store operations by operation and result.",
			},
			[]string{"op", "result"},
		),
		authAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Sign-up and sign-in attempts by kind and result.",
			},
			[]string{"kind", "result"},
		),
		sweptFiles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "swept_files_total",
				Help:      "Orphaned files removed by area.",
			},
			[]string{"area"},
		),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveQuery implements storage.Observer.
func (r *Recorder) ObserveQuery(entity, op string, err error) {
	r.dbQueries.WithLabelValues(entity, op, result(err)).Inc()
}

// ObserveFileOp implements filestore.Observer.
func (r *Recorder) ObserveFileOp(op string, err error) {
	r.fileOps.WithLabelValues(op, result(err)).Inc()
}

func (r *Recorder) ObserveAuth(kind string, err error) {
	r.authAttempts.WithLabelValues(kind, result(err)).Inc()
}

func (r *Recorder) ObserveSweep(area string, removed int) {
	r.sweptFiles.WithLabelValues(area).Add(float64(removed))
}

// WriteText writes every gathered family in the Prometheus text format.
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
