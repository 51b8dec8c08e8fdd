package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/isqad/livecam-gateway/internal/eventbus"
	"github.com/isqad/livecam-gateway/internal/gateway"
	"github.com/isqad/livecam-gateway/internal/telemetry"
)

// MjpegStreamHandler serves the debug multipart JPEG stream. The source
// URL is validated before any process is spawned; the transcoder dies
// with the connection.
func MjpegStreamHandler(
	streamer *gateway.MjpegStreamer,
	defaultSource string,
	events eventbus.Publisher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, err := sourceFromRequest(r, defaultSource)
		if err != nil {
			telemetry.OperationCounter.WithLabelValues("mjpeg", "bad_request").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		streamID := uuid.NewString()

		telemetry.MjpegStreamStarted()
		defer telemetry.MjpegStreamStopped()

		if err := events.Publish(eventbus.NewEvent(eventbus.MjpegConnected, streamID, src.URL)); err != nil {
			log.Warn().Str("service", "mjpeg").Err(err).Msg("can't publish event")
		}
		defer func() {
			if err := events.Publish(eventbus.NewEvent(eventbus.MjpegDisconnected, streamID, src.URL)); err != nil {
				log.Warn().Str("service", "mjpeg").Err(err).Msg("can't publish event")
			}
		}()

		w.Header().Set("Content-Type", gateway.MjpegContentType)
		w.Header().Set("Cache-Control", "no-store")

		if err := streamer.Stream(r.Context(), w, src); err != nil {
			telemetry.OperationCounter.WithLabelValues("mjpeg", "error").Inc()
			return
		}
		telemetry.OperationCounter.WithLabelValues("mjpeg", "ok").Inc()
	}
}
