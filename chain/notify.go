package chain

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/forumchain/forumchain/logger"
	"github.com/forumchain/forumchain/types"
)

type (
	// Notification is delivered synchronously after each operation
	// applies. Virtual marks internally generated effects (sweep fills)
	// as opposed to operations submitted in a transaction.
	Notification struct {
		Op       types.Operation
		Virtual  bool
		BlockNum uint32
	}

	// Listener consumes post-apply notifications; plugins (tag index,
	// search, history) register one.
	Listener func(n Notification) error

	// NotificationHub fans notifications out to registered listeners.
	// Listener errors are logged and swallowed, except on the producing
	// node where they propagate so a producer never publishes a block
	// its own plugins reject.
	NotificationHub struct {
		listeners []namedListener
		log       *slog.Logger

		published *prometheus.CounterVec
		failures  *prometheus.CounterVec
	}

	namedListener struct {
		name string
		fn   Listener
	}
)

func NewNotificationHub(log *slog.Logger, reg prometheus.Registerer) *NotificationHub {
	h := &NotificationHub{
		log: log,
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forumchain",
			Subsystem: "notify",
			Name:      "published_total",
			Help:      "Post-apply notifications published, by operation type.",
		}, []string{"op", "virtual"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forumchain",
			Subsystem: "notify",
			Name:      "listener_failures_total",
			Help:      "Listener errors, by listener name.",
		}, []string{"listener"}),
	}
	if reg != nil {
		reg.MustRegister(h.published, h.failures)
	}
	return h
}

// Subscribe registers a listener under a stable name used in logs and
// metrics. Not safe to call concurrently with Publish.
func (h *NotificationHub) Subscribe(name string, fn Listener) {
	h.listeners = append(h.listeners, namedListener{name: name, fn: fn})
}

func (h *NotificationHub) Publish(n Notification, producing bool) error {
	h.published.WithLabelValues(n.Op.Type, fmt.Sprint(n.Virtual)).Inc()
	for _, l := range h.listeners {
		if err := l.fn(n); err != nil {
			h.failures.WithLabelValues(l.name).Inc()
			if producing {
				return fmt.Errorf("notification listener %q: %w", l.name, err)
			}
			h.log.Warn("notification listener failed",
				slog.String("listener", l.name), logger.Op(n.Op.Type), logger.Error(err))
		}
	}
	return nil
}
