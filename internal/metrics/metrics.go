package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PushDelivered counts events handed to a live connection.
	PushDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sociogram_push_delivered_total",
		Help: "Push events delivered to a connected client.",
	})

	// PushDropped counts events silently dropped because the target had no
	// live connection or its buffer was full.
	PushDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sociogram_push_dropped_total",
		Help: "Push events dropped for absent or slow clients.",
	})

	// NotificationsEnqueued counts outbox writes.
	NotificationsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sociogram_notifications_enqueued_total",
		Help: "Notifications written to the outbox.",
	})
)
