package tv

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvctl_frames_total",
		Help: "Total SSAP frames sent and received",
	}, []string{"direction"}) // "in", "out"

	framesIn  = framesTotal.WithLabelValues("in")
	framesOut = framesTotal.WithLabelValues("out")

	decodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tvctl_frame_decode_errors_total",
		Help: "Inbound frames dropped because they could not be decoded",
	})

	requestsInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvctl_requests_inflight",
		Help: "Requests currently awaiting a response from the TV",
	})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tvctl_subscription_events_dropped_total",
		Help: "Push events dropped because a subscription queue was full",
	})

	connectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvctl_connected",
		Help: "Whether the client is paired and ready (1) or not (0)",
	})
)

func setConnectionState(v float64) {
	connectionState.Set(v)
}
