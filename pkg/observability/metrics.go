package observability

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/a11ybridge/pkg/domain"
)

const namespace = "a11ybridge"

// Metrics holds the Prometheus collectors fed by the sync hooks.
type Metrics struct {
	Cycles          prometheus.Counter
	NodesSent       prometheus.Counter
	NodesDeleted    prometheus.Counter
	NodesDropped    prometheus.Counter
	Messages        prometheus.Counter
	RootUpdates     prometheus.Counter
	CycleDuration   prometheus.Histogram
	Actions         *prometheus.CounterVec
	TransportErrors *prometheus.CounterVec
}

// NewMetrics creates the collectors, labelled with the tree name, and
// registers them on reg.
func NewMetrics(reg prometheus.Registerer, tree string) (*Metrics, error) {
	labels := prometheus.Labels{"tree": tree}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: name, Help: help, ConstLabels: labels,
		})
	}

	m := &Metrics{
		Cycles:       counter("cycles_total", "Update cycles committed."),
		NodesSent:    counter("nodes_sent_total", "Nodes sent in update messages."),
		NodesDeleted: counter("nodes_deleted_total", "Node IDs sent in delete messages."),
		NodesDropped: counter("nodes_dropped_total", "Nodes dropped before sending."),
		Messages:     counter("messages_total", "Update and delete messages sent."),
		RootUpdates:  counter("root_updates_total", "Cycles that re-sent the root node."),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "cycle_duration_seconds",
			Help:        "Duration of update cycles.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "actions_total", Help: "Remote action requests.", ConstLabels: labels,
		}, []string{"action", "accepted"}),
		TransportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "transport_errors_total", Help: "Failed transport operations.", ConstLabels: labels,
		}, []string{"operation"}),
	}

	for _, c := range []prometheus.Collector{
		m.Cycles, m.NodesSent, m.NodesDeleted, m.NodesDropped, m.Messages,
		m.RootUpdates, m.CycleDuration, m.Actions, m.TransportErrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns sync hooks that record into m.
func (m *Metrics) Hooks() domain.SyncHooks {
	return domain.SyncHooks{
		OnCycle: func(_ context.Context, e *domain.CycleEvent) {
			m.Cycles.Inc()
			m.NodesSent.Add(float64(e.NodesSent))
			m.NodesDeleted.Add(float64(e.Deleted))
			m.Messages.Add(float64(e.Messages))
			if e.RootUpdated {
				m.RootUpdates.Inc()
			}
			m.CycleDuration.Observe(e.Duration.Seconds())
		},
		OnNodeDropped: func(context.Context, *domain.NodeEvent) {
			m.NodesDropped.Inc()
		},
		OnAction: func(_ context.Context, e *domain.ActionEvent) {
			m.Actions.WithLabelValues(e.Action.String(), strconv.FormatBool(e.Accepted)).Inc()
		},
		OnTransportError: func(_ context.Context, e *domain.TransportEvent) {
			m.TransportErrors.WithLabelValues(e.Operation).Inc()
		},
	}
}
