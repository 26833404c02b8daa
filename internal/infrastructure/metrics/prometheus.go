// Package metrics expone métricas Prometheus del servicio: peticiones HTTP, movimientos
// del ledger, transiciones de OC, ciclos de compra automática y alertas.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/procurement-api/internal/application/alerts"
	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/application/procurement"
	"github.com/jhoicas/procurement-api/internal/application/purchasing"
)

const namespace = "procurement"

// Recorder implementa los colectores de los casos de uso sobre un registro propio.
// Seguro para uso concurrente.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	movements      *prometheus.CounterVec
	poTransitions  *prometheus.CounterVec
	cycles         prometheus.Counter
	cycleOutcomes  *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	alertsRaised   *prometheus.CounterVec
	alertsResolved *prometheus.CounterVec
}

var (
	_ inventory.MovementRecorder    = (*Recorder)(nil)
	_ purchasing.TransitionRecorder = (*Recorder)(nil)
	_ procurement.CycleRecorder     = (*Recorder)(nil)
	_ alerts.Recorder               = (*Recorder)(nil)
)

// NewRecorder crea y registra las métricas. withRuntime agrega los colectores de Go y del proceso.
func NewRecorder(withRuntime bool) *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "Peticiones HTTP atendidas por método, ruta y código.",
	}, []string{"method", "route", "status"})
	r.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "Latencia de las peticiones HTTP.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	r.movements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "inventory", Name: "movements_total",
		Help: "Movimientos del ledger por tipo; duplicate=true si la referencia ya estaba aplicada.",
	}, []string{"type", "duplicate"})
	r.poTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "purchasing", Name: "po_transitions_total",
		Help: "Transiciones de estado de órdenes de compra.",
	}, []string{"from", "to"})
	r.cycles = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "orchestrator", Name: "cycles_total",
		Help: "Ciclos de compra automática ejecutados.",
	})
	r.cycleOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "orchestrator", Name: "suggestions_total",
		Help: "Sugerencias procesadas por resultado (created, appended, skipped, failed).",
	}, []string{"outcome"})
	r.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "orchestrator", Name: "cycle_duration_seconds",
		Help:    "Duración de los ciclos de compra automática.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
	r.alertsRaised = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "alerts", Name: "raised_total",
		Help: "Alertas creadas por tipo y severidad.",
	}, []string{"type", "severity"})
	r.alertsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "alerts", Name: "resolved_total",
		Help: "Alertas resueltas automáticamente por tipo.",
	}, []string{"type"})

	r.registry.MustRegister(
		r.httpRequests, r.httpDuration, r.movements, r.poTransitions,
		r.cycles, r.cycleOutcomes, r.cycleDuration, r.alertsRaised, r.alertsResolved,
	)
	if withRuntime {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// Registry registro subyacente (tests y colectores adicionales).
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler expone el registro en formato de texto de Prometheus.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// HTTPRequest registra una petición atendida. route es el patrón de la ruta, no la URL.
func (r *Recorder) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (r *Recorder) MovementApplied(movementType string, duplicate bool) {
	r.movements.WithLabelValues(movementType, strconv.FormatBool(duplicate)).Inc()
}

func (r *Recorder) PurchaseOrderTransition(from, to string) {
	r.poTransitions.WithLabelValues(from, to).Inc()
}

func (r *Recorder) ProcurementCycle(created, appended, skipped, failed int, elapsed time.Duration) {
	r.cycles.Inc()
	r.cycleOutcomes.WithLabelValues("created").Add(float64(created))
	r.cycleOutcomes.WithLabelValues("appended").Add(float64(appended))
	r.cycleOutcomes.WithLabelValues("skipped").Add(float64(skipped))
	r.cycleOutcomes.WithLabelValues("failed").Add(float64(failed))
	r.cycleDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) AlertRaised(alertType, severity string) {
	r.alertsRaised.WithLabelValues(alertType, severity).Inc()
}

func (r *Recorder) AlertResolved(alertType string) {
	r.alertsResolved.WithLabelValues(alertType).Inc()
}
