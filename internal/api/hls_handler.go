package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/isqad/livecam-gateway/internal/gateway"
	"github.com/isqad/livecam-gateway/internal/telemetry"
)

// HlsManifestHandler serves the rewritten HLS playlist for the requested
// source, starting the shared transcoder on demand. Manifests mutate
// continuously, so the response is marked non-cacheable.
func HlsManifestHandler(packager *gateway.HlsPackager, defaultSource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, err := sourceFromRequest(r, defaultSource)
		if err != nil {
			telemetry.OperationCounter.WithLabelValues("hls_manifest", "bad_request").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		manifest, err := packager.Manifest(src)
		if err != nil {
			log.Error().Str("service", "hls").Err(err).Msg("can't serve manifest")
			telemetry.OperationCounter.WithLabelValues("hls_manifest", "error").Inc()
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		telemetry.OperationCounter.WithLabelValues("hls_manifest", "ok").Inc()
		w.Header().Set("Content-Type", gateway.ManifestContentType)
		w.Header().Set("Cache-Control", "no-store")
		w.Write([]byte(manifest))
	}
}

// HlsSegmentHandler serves one transport-stream segment by bare filename.
func HlsSegmentHandler(packager *gateway.HlsPackager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := packager.Segment(r.URL.Query().Get("file"))
		if err != nil {
			switch {
			case errors.Is(err, gateway.ErrBadSegmentName):
				telemetry.OperationCounter.WithLabelValues("hls_segment", "bad_request").Inc()
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, gateway.ErrSegmentNotFound):
				telemetry.OperationCounter.WithLabelValues("hls_segment", "not_found").Inc()
				http.Error(w, err.Error(), http.StatusNotFound)
			default:
				log.Error().Str("service", "hls").Err(err).Msg("can't read segment")
				telemetry.OperationCounter.WithLabelValues("hls_segment", "error").Inc()
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		telemetry.OperationCounter.WithLabelValues("hls_segment", "ok").Inc()
		w.Header().Set("Content-Type", gateway.SegmentContentType)
		w.Write(data)
	}
}
