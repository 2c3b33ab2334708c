/*
Copyright 2020 The Crossplane Authors.

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

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "concord_ansible_events"

// Delivery counts reported events by outcome.
type Delivery struct {
	registry  *prometheus.Registry
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewDelivery returns delivery counters registered on a private registry.
func NewDelivery() *Delivery {
	d := &Delivery{
		registry: prometheus.NewRegistry(),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivered_total",
			Help:      "Number of task events accepted by the event endpoint.",
		}, []string{"status"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failed_total",
			Help:      "Number of task events that could not be delivered.",
		}, []string{"status"}),
	}
	d.registry.MustRegister(d.delivered, d.failed)
	return d
}

// Delivered records an accepted event.
func (d *Delivery) Delivered(status string) {
	if d == nil {
		return
	}
	d.delivered.WithLabelValues(status).Inc()
}

// Failed records an event that was not accepted.
func (d *Delivery) Failed(status string) {
	if d == nil {
		return
	}
	d.failed.WithLabelValues(status).Inc()
}

// Handler serves the counters in the Prometheus exposition format.
func (d *Delivery) Handler() http.Handler {
	return promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})
}
