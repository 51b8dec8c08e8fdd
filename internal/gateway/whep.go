package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pion/sdp/v3"
	"github.com/rs/zerolog/log"
)

// SdpContentType is the media type of WHEP offers and answers.
const SdpContentType = "application/sdp"

// NegotiationResult is the outcome of a successful WHEP offer/answer
// exchange. Location is the opaque session handle the upstream returned:
// either an absolute URL or a path to resolve against a base on teardown.
// The caller keeps it; the proxy is stateless across the two calls.
type NegotiationResult struct {
	Answer   string
	Location string
}

// WhepProxy relays WHEP negotiation between a browser and an upstream
// media server, trying an ordered list of candidate targets (primary base
// first, then fallback). Each call is a single best-effort attempt per
// target, no retries, no backoff.
type WhepProxy struct {
	primaryBase  string
	fallbackBase string
	client       *http.Client
}

func NewWhepProxy(primaryBase, fallbackBase string) *WhepProxy {
	return &WhepProxy{
		primaryBase:  strings.TrimSuffix(primaryBase, "/"),
		fallbackBase: strings.TrimSuffix(fallbackBase, "/"),
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Negotiate posts the SDP offer to each candidate target in order and
// returns the first answer that is both an HTTP success and parseable
// SDP. If every target fails, the error carries the last diagnostic.
func (p *WhepProxy) Negotiate(ctx context.Context, pathName, offer string) (*NegotiationResult, error) {
	var lastErr string

	for _, target := range p.candidates(pathName) {
		result, errText := p.attempt(ctx, target, offer)
		if result != nil {
			log.Info().
				Str("service", "whep").
				Str("target", target).
				Msg("negotiated")
			return result, nil
		}

		lastErr = errText
		log.Warn().
			Str("service", "whep").
			Str("target", target).
			Str("error", errText).
			Msg("negotiation attempt failed")
	}

	return nil, fmt.Errorf("%w: %s", ErrUpstreamNegotiation, lastErr)
}

// attempt performs one offer POST against target and classifies the
// outcome: a result on success, a diagnostic string otherwise.
func (p *WhepProxy) attempt(ctx context.Context, target, offer string) (*NegotiationResult, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(offer))
	if err != nil {
		return nil, err.Error()
	}
	req.Header.Set("Content-Type", SdpContentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err.Error()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err.Error()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if !isSdpAnswer(body) {
		return nil, fmt.Sprintf("%s: body is not an SDP answer", resp.Status)
	}

	return &NegotiationResult{
		Answer:   string(body),
		Location: resp.Header.Get("Location"),
	}, ""
}

// Teardown relays the session delete identified by location. An absolute
// location is targeted directly; a relative one is resolved against the
// primary and fallback bases in turn. A success, not-found or gone
// response all count as "already cleaned up" and yield 204: double
// teardown and races with natural session expiry are not failures.
//
// The returned status is the one to relay to the browser. If every
// candidate fails at the network level, ErrUpstreamTeardown is returned
// instead.
func (p *WhepProxy) Teardown(ctx context.Context, location string) (int, error) {
	targets := []string{location}
	if u, err := url.Parse(location); err != nil || !u.IsAbs() {
		targets = []string{
			p.primaryBase + "/" + strings.TrimPrefix(location, "/"),
			p.fallbackBase + "/" + strings.TrimPrefix(location, "/"),
		}
	}

	lastStatus := 0
	for _, target := range targets {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
		if err != nil {
			continue
		}

		resp, err := p.client.Do(req)
		if err != nil {
			log.Warn().
				Str("service", "whep").
				Str("target", target).
				Err(err).
				Msg("teardown attempt failed")
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode <= 299,
			resp.StatusCode == http.StatusNotFound,
			resp.StatusCode == http.StatusGone:
			return http.StatusNoContent, nil
		}
		lastStatus = resp.StatusCode
	}

	if lastStatus == 0 {
		return 0, ErrUpstreamTeardown
	}
	return lastStatus, nil
}

// candidates returns the ordered upstream targets for a logical path.
func (p *WhepProxy) candidates(pathName string) []string {
	pathName = strings.TrimPrefix(pathName, "/")
	return []string{
		p.primaryBase + "/" + pathName,
		p.fallbackBase + "/" + pathName,
	}
}

// isSdpAnswer reports whether body begins with the session-description
// prefix and unmarshals as SDP.
func isSdpAnswer(body []byte) bool {
	if !bytes.HasPrefix(body, []byte("v=0")) {
		return false
	}
	desc := sdp.SessionDescription{}
	return desc.Unmarshal(body) == nil
}
