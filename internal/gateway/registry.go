package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/isqad/livecam-gateway/internal/eventbus"
	"github.com/isqad/livecam-gateway/internal/telemetry"
)

// SourceMode selects the camera stream quality. Only the URL is used as a
// registry key today; the mode is threaded through for future use.
type SourceMode string

const (
	SourceModeMain SourceMode = "main"
	SourceModeSub  SourceMode = "sub"
)

// ParseSourceMode maps an arbitrary string onto a known mode, defaulting
// to the main stream.
func ParseSourceMode(s string) SourceMode {
	if SourceMode(s) == SourceModeSub {
		return SourceModeSub
	}
	return SourceModeMain
}

// SourceDescriptor identifies one RTSP origin.
type SourceDescriptor struct {
	URL  string
	Mode SourceMode
}

// TranscoderHandle is a live HLS transcoder owned by the registry.
type TranscoderHandle struct {
	ID        string
	SourceURL string
	WorkDir   string
	StartedAt time.Time

	process Process
}

func (h *TranscoderHandle) Pid() int { return h.process.Pid() }

// ProcessRegistry keeps at most one live HLS transcoder per purpose,
// restarting it exactly when the requested source URL changes. All
// mutation of the single handle slot is serialized by the mutex.
type ProcessRegistry struct {
	mu      sync.Mutex
	handle  *TranscoderHandle
	spawner Spawner
	workDir string
	events  eventbus.Publisher
	now     func() time.Time
}

func NewProcessRegistry(spawner Spawner, workDir string, events eventbus.Publisher) *ProcessRegistry {
	if events == nil {
		events = eventbus.Noop{}
	}
	return &ProcessRegistry{
		spawner: spawner,
		workDir: workDir,
		events:  events,
		now:     time.Now,
	}
}

// Acquire returns the live handle if one already exists for sourceURL.
// Otherwise any handle for a different URL is killed and discarded, then a
// new transcoder is launched. The old process is killed outright, never
// asked to exit.
func (r *ProcessRegistry) Acquire(src SourceDescriptor) (*TranscoderHandle, error) {
	handle, event, err := r.acquire(src)
	if err != nil {
		return nil, err
	}

	// Published outside the lock so a slow event bus never stalls
	// concurrent Acquire calls.
	if event != nil {
		if err := r.events.Publish(*event); err != nil {
			log.Warn().Str("service", "registry").Err(err).Msg("can't publish event")
		}
	}

	return handle, nil
}

func (r *ProcessRegistry) acquire(src SourceDescriptor) (*TranscoderHandle, *eventbus.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle != nil && r.handle.SourceURL == src.URL {
		return r.handle, nil, nil
	}

	replaced := false
	if r.handle != nil {
		log.Info().
			Str("service", "registry").
			Str("old_url", r.handle.SourceURL).
			Str("new_url", src.URL).
			Msg("source changed, kill current transcoder")

		if err := r.handle.process.Kill(); err != nil {
			log.Warn().Str("service", "registry").Err(err).Msg("can't kill transcoder")
		}
		go r.handle.process.Wait() // reap, exit status is irrelevant
		r.handle = nil
		replaced = true
	}

	process, err := r.spawner.Spawn(HlsArgs(src.URL, r.workDir))
	if err != nil {
		return nil, nil, err
	}

	telemetry.TranscoderStartCounter.WithLabelValues("hls").Inc()

	r.handle = &TranscoderHandle{
		ID:        uuid.NewString(),
		SourceURL: src.URL,
		WorkDir:   r.workDir,
		StartedAt: r.now(),
		process:   process,
	}

	log.Info().
		Str("service", "registry").
		Str("handle_id", r.handle.ID).
		Str("url", src.URL).
		Int("pid", process.Pid()).
		Msg("transcoder acquired")

	eventType := eventbus.TranscoderStarted
	if replaced {
		eventType = eventbus.TranscoderReplaced
	}
	event := eventbus.NewEvent(eventType, r.handle.ID, src.URL)

	return r.handle, &event, nil
}

// Shutdown kills the live transcoder, if any. Called on server stop.
func (r *ProcessRegistry) Shutdown() {
	event := r.shutdown()
	if event == nil {
		return
	}

	if err := r.events.Publish(*event); err != nil {
		log.Warn().Str("service", "registry").Err(err).Msg("can't publish event")
	}
}

func (r *ProcessRegistry) shutdown() *eventbus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil {
		return nil
	}

	if err := r.handle.process.Kill(); err != nil {
		log.Warn().Str("service", "registry").Err(err).Msg("can't kill transcoder on shutdown")
	}
	r.handle.process.Wait()

	event := eventbus.NewEvent(eventbus.TranscoderStopped, r.handle.ID, r.handle.SourceURL)
	r.handle = nil

	return &event
}
