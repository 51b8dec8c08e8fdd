package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/isqad/livecam-gateway/internal/eventbus"
	"github.com/isqad/livecam-gateway/internal/gateway"
)

type stubProcess struct {
	stdout io.ReadCloser
}

func (p *stubProcess) Pid() int              { return 4242 }
func (p *stubProcess) Stdout() io.ReadCloser { return p.stdout }
func (p *stubProcess) Stderr() io.ReadCloser { return io.NopCloser(bytes.NewReader(nil)) }
func (p *stubProcess) Kill() error           { return nil }
func (p *stubProcess) Wait() error           { return nil }

type stubSpawner struct {
	mu      sync.Mutex
	MockErr error
	spawned int
}

func (s *stubSpawner) Spawn(args []string) (gateway.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.MockErr != nil {
		return nil, s.MockErr
	}
	s.spawned++
	return &stubProcess{stdout: io.NopCloser(bytes.NewReader(nil))}, nil
}

func newTestPackager(t *testing.T) (*gateway.HlsPackager, string) {
	t.Helper()

	scratch := t.TempDir()
	registry := gateway.NewProcessRegistry(&stubSpawner{}, scratch, eventbus.Noop{})

	return gateway.NewHlsPackager(registry, scratch, SegmentRoute), scratch
}

func TestHlsManifestHandler(t *testing.T) {
	t.Run("bad request without source url and default", func(t *testing.T) {
		packager, _ := newTestPackager(t)

		r := chi.NewRouter()
		r.Get("/hls", HlsManifestHandler(packager, ""))
		ts := httptest.NewServer(r)
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/hls")
		assert.Nil(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("placeholder manifest with success status before first segment", func(t *testing.T) {
		packager, _ := newTestPackager(t)

		r := chi.NewRouter()
		r.Get("/hls", HlsManifestHandler(packager, "rtsp://cam/default"))
		ts := httptest.NewServer(r)
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/hls")
		assert.Nil(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		assert.Nil(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, gateway.ManifestContentType, resp.Header.Get("Content-Type"))
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		assert.True(t, strings.HasPrefix(string(body), "#EXTM3U"))
	})

	t.Run("rewritten manifest once segments exist", func(t *testing.T) {
		packager, scratch := newTestPackager(t)

		raw := "#EXTM3U\n#EXTINF:1.000000,\nseg0.ts\n"
		assert.Nil(t, os.WriteFile(filepath.Join(scratch, gateway.ManifestFilename), []byte(raw), 0o644))

		r := chi.NewRouter()
		r.Get("/hls", HlsManifestHandler(packager, ""))
		ts := httptest.NewServer(r)
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/hls?src=rtsp%3A%2F%2Fcam%2F1")
		assert.Nil(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		assert.Nil(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), SegmentRoute+"?file=seg0.ts")
		assert.NotContains(t, string(body), "\nseg0.ts")
	})
}

func TestHlsSegmentHandler(t *testing.T) {
	packager, scratch := newTestPackager(t)
	assert.Nil(t, os.WriteFile(filepath.Join(scratch, "seg0.ts"), []byte{0x47, 0x11}, 0o644))

	r := chi.NewRouter()
	r.Get("/segment", HlsSegmentHandler(packager))
	ts := httptest.NewServer(r)
	defer ts.Close()

	t.Run("serves existing segment", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/segment?file=seg0.ts")
		assert.Nil(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		assert.Nil(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, gateway.SegmentContentType, resp.Header.Get("Content-Type"))
		assert.Equal(t, []byte{0x47, 0x11}, body)
	})

	t.Run("not found for absent segment", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/segment?file=seg9.ts")
		assert.Nil(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("bad request on path escape", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/segment?file=..%2F..%2Fetc%2Fpasswd")
		assert.Nil(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
