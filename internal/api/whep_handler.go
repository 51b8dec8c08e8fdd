package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/isqad/livecam-gateway/internal/eventbus"
	"github.com/isqad/livecam-gateway/internal/gateway"
	"github.com/isqad/livecam-gateway/internal/telemetry"
)

// WhepNegotiateHandler relays an SDP offer to the upstream media servers
// and answers with the SDP answer plus the opaque session handle in the
// Location header.
func WhepNegotiateHandler(proxy *gateway.WhepProxy, events eventbus.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathName := r.URL.Query().Get("path")
		if pathName == "" {
			telemetry.OperationCounter.WithLabelValues("whep_negotiate", "bad_request").Inc()
			http.Error(w, "path parameter is required", http.StatusBadRequest)
			return
		}

		offer, err := io.ReadAll(r.Body)
		if err != nil || len(offer) == 0 {
			telemetry.OperationCounter.WithLabelValues("whep_negotiate", "bad_request").Inc()
			http.Error(w, "empty offer", http.StatusBadRequest)
			return
		}

		result, err := proxy.Negotiate(r.Context(), pathName, string(offer))
		if err != nil {
			telemetry.OperationCounter.WithLabelValues("whep_negotiate", "upstream_error").Inc()
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		if err := events.Publish(eventbus.NewEvent(eventbus.WhepNegotiated, uuid.NewString(), pathName)); err != nil {
			log.Warn().Str("service", "whep").Err(err).Msg("can't publish event")
		}

		telemetry.OperationCounter.WithLabelValues("whep_negotiate", "ok").Inc()
		w.Header().Set("Content-Type", gateway.SdpContentType)
		if result.Location != "" {
			w.Header().Set("Location", result.Location)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(result.Answer))
	}
}

// WhepTeardownHandler relays a session teardown for the handle returned
// by negotiation. Upstream not-found and gone responses count as success.
func WhepTeardownHandler(proxy *gateway.WhepProxy, events eventbus.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := r.URL.Query().Get("location")
		if location == "" {
			telemetry.OperationCounter.WithLabelValues("whep_teardown", "bad_request").Inc()
			http.Error(w, "location parameter is required", http.StatusBadRequest)
			return
		}

		status, err := proxy.Teardown(r.Context(), location)
		if err != nil {
			if errors.Is(err, gateway.ErrUpstreamTeardown) {
				telemetry.OperationCounter.WithLabelValues("whep_teardown", "upstream_error").Inc()
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			telemetry.OperationCounter.WithLabelValues("whep_teardown", "error").Inc()
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if status == http.StatusNoContent {
			if err := events.Publish(eventbus.NewLocationEvent(eventbus.WhepTornDown, location)); err != nil {
				log.Warn().Str("service", "whep").Err(err).Msg("can't publish event")
			}
			telemetry.OperationCounter.WithLabelValues("whep_teardown", "ok").Inc()
		} else {
			telemetry.OperationCounter.WithLabelValues("whep_teardown", "passthrough").Inc()
		}

		w.WriteHeader(status)
	}
}
