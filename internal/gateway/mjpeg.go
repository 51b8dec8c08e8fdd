package gateway

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/isqad/livecam-gateway/internal/telemetry"
)

// MjpegBoundary is the fixed multipart boundary token of the MJPEG stream.
const MjpegBoundary = "livecamframe"

// MjpegContentType is the value to send in the Content-Type header of the
// MJPEG response.
const MjpegContentType = "multipart/x-mixed-replace; boundary=" + MjpegBoundary

// MjpegStreamer serves one multipart JPEG stream per invocation, backed by
// a transcoder spawned for that connection alone. The process is never
// shared: the multipart framing is connection-specific.
type MjpegStreamer struct {
	spawner Spawner
	fps     int
}

func NewMjpegStreamer(spawner Spawner, fps int) *MjpegStreamer {
	return &MjpegStreamer{spawner: spawner, fps: fps}
}

// Stream spawns a transcoder for src and writes its JPEG frames to w as
// multipart parts until the transcoder exits or ctx is cancelled (client
// disconnect). On cancellation the transcoder is killed outright. On
// transcoder exit or spawn failure one final text part describing the
// condition is written before the stream closes.
//
// Frames are written in the exact order the transcoder produced them; a
// frame is never split across parts and every part's Content-Length equals
// the frame's byte length.
func (s *MjpegStreamer) Stream(ctx context.Context, w io.Writer, src SourceDescriptor) error {
	streamID := uuid.NewString()
	logger := log.With().Str("service", "mjpeg").Str("stream_id", streamID).Str("url", src.URL).Logger()

	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(MjpegBoundary); err != nil {
		return err
	}

	process, err := s.spawner.Spawn(MjpegArgs(src.URL, s.fps))
	if err != nil {
		logger.Error().Err(err).Msg("can't spawn transcoder")
		writeTextPart(mw, fmt.Sprintf("transcoder failed to start: %v", err))
		mw.Close()
		return err
	}

	telemetry.TranscoderStartCounter.WithLabelValues("mjpeg").Inc()
	logger.Info().Int("pid", process.Pid()).Msg("stream started")

	killed := make(chan struct{})
	defer close(killed)
	go func() {
		select {
		case <-ctx.Done():
			process.Kill()
		case <-killed:
		}
	}()

	// Per-chunk stderr output is deliberately not forwarded.
	go io.Copy(io.Discard, process.Stderr())

	extractor := NewFrameExtractor()
	buf := make([]byte, 32*1024)
	flusher, _ := w.(interface{ Flush() })

	var streamErr error
	for {
		n, err := process.Stdout().Read(buf)
		if n > 0 {
			for _, frame := range extractor.Write(buf[:n]) {
				if err := writeFramePart(mw, frame); err != nil {
					streamErr = err
					break
				}
				telemetry.FramesEmittedCounter.Inc()
				if flusher != nil {
					flusher.Flush()
				}
			}
		}
		if streamErr != nil || err != nil {
			// EOF is the transcoder closing its output, a normal exit.
			if err != nil && err != io.EOF && streamErr == nil && ctx.Err() == nil {
				streamErr = err
			}
			break
		}
	}

	process.Kill()
	waitErr := process.Wait()

	switch {
	case ctx.Err() != nil:
		logger.Info().Msg("client disconnected")
		return nil
	case streamErr != nil:
		logger.Error().Err(streamErr).Msg("stream aborted")
	default:
		logger.Warn().Err(waitErr).Msg("transcoder exited")
	}

	writeTextPart(mw, fmt.Sprintf("transcoder stopped: %v", waitErr))
	mw.Close()

	return streamErr
}

func writeFramePart(mw *multipart.Writer, frame []byte) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", "image/jpeg")
	h.Set("Content-Length", strconv.Itoa(len(frame)))

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(frame)
	return err
}

func writeTextPart(mw *multipart.Writer, msg string) {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", "text/plain")
	h.Set("Content-Length", strconv.Itoa(len(msg)))

	part, err := mw.CreatePart(h)
	if err != nil {
		return
	}
	io.WriteString(part, msg)
}
