package telemetry

import "github.com/prometheus/client_golang/prometheus"

const livecamNamespace string = "livecam"

var (
	promMjpegActive prometheus.Gauge

	OperationCounter       *prometheus.CounterVec
	TranscoderStartCounter *prometheus.CounterVec
	FramesEmittedCounter   prometheus.Counter
)

func init() {
	promMjpegActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: livecamNamespace,
		Subsystem: "mjpeg",
		Name:      "active_streams",
	})

	OperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: livecamNamespace,
			Subsystem: "gateway",
			Name:      "operation",
		},
		[]string{"type", "status"},
	)

	TranscoderStartCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: livecamNamespace,
			Subsystem: "transcoder",
			Name:      "starts",
		},
		[]string{"purpose"},
	)

	FramesEmittedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: livecamNamespace,
		Subsystem: "mjpeg",
		Name:      "frames_emitted",
	})

	prometheus.MustRegister(promMjpegActive)
	prometheus.MustRegister(OperationCounter)
	prometheus.MustRegister(TranscoderStartCounter)
	prometheus.MustRegister(FramesEmittedCounter)
}

func MjpegStreamStarted() {
	promMjpegActive.Inc()
}

func MjpegStreamStopped() {
	promMjpegActive.Dec()
}
