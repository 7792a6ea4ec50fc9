package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the service's prometheus collectors. A nil *Registry is valid and records nothing.
type Registry struct {
	reg                 *prometheus.Registry
	GatewayWrites       prometheus.Counter
	GatewayDeliveries   prometheus.Counter
	ActiveSubscriptions prometheus.Gauge
	MergeRecomputes     *prometheus.CounterVec
	MutationFailures    *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	writes := prometheus.NewCounter(prometheus.CounterOpts{Name: "basket_gateway_writes_total"})
	deliveries := prometheus.NewCounter(prometheus.CounterOpts{Name: "basket_gateway_deliveries_total"})
	active := prometheus.NewGauge(prometheus.GaugeOpts{Name: "basket_gateway_active_subscriptions"})
	recomputes := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "basket_merge_recomputes_total"}, []string{"feed"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "basket_mutation_failures_total"}, []string{"operation"})

	r.MustRegister(writes, deliveries, active, recomputes, failures)
	return &Registry{
		reg:                 r,
		GatewayWrites:       writes,
		GatewayDeliveries:   deliveries,
		ActiveSubscriptions: active,
		MergeRecomputes:     recomputes,
		MutationFailures:    failures,
	}
}

func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Registry) ObserveWrite() {
	if r == nil {
		return
	}
	r.GatewayWrites.Inc()
}

func (r *Registry) ObserveDelivery() {
	if r == nil {
		return
	}
	r.GatewayDeliveries.Inc()
}

func (r *Registry) SubscriptionOpened() {
	if r == nil {
		return
	}
	r.ActiveSubscriptions.Inc()
}

func (r *Registry) SubscriptionClosed() {
	if r == nil {
		return
	}
	r.ActiveSubscriptions.Dec()
}

func (r *Registry) ObserveRecompute(feed string) {
	if r == nil {
		return
	}
	r.MergeRecomputes.WithLabelValues(feed).Inc()
}

func (r *Registry) ObserveMutationFailure(operation string) {
	if r == nil {
		return
	}
	r.MutationFailures.WithLabelValues(operation).Inc()
}
