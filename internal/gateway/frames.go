package gateway

import "bytes"

// JPEG frame boundary markers.
var (
	frameStart = []byte{0xff, 0xd8}
	frameEnd   = []byte{0xff, 0xd9}
)

// FrameExtractor detects complete JPEG frames inside a continuous byte
// stream fed to it chunk by chunk.
//
// Invariants:
//   - a frame is emitted only when a start marker is followed, later in
//     the buffer, by an end marker; the scan is greedy and non-overlapping,
//     always resuming from the byte right after the previous end marker;
//   - no frame is ever emitted twice;
//   - bytes after an unmatched start marker stay in the buffer verbatim
//     until more data arrives;
//   - the buffer grows without bound while no end marker shows up.
//
// One extractor serves exactly one logical stream; construct a new one per
// connection.
type FrameExtractor struct {
	buf []byte
}

func NewFrameExtractor() *FrameExtractor {
	return &FrameExtractor{}
}

// Write appends a chunk and returns every frame completed by it, in stream
// order. The returned slices are copies, safe to retain. The result is
// independent of how the stream was split into chunks.
func (e *FrameExtractor) Write(chunk []byte) [][]byte {
	e.buf = append(e.buf, chunk...)

	var frames [][]byte
	for {
		start := bytes.Index(e.buf, frameStart)
		if start < 0 {
			break
		}
		rel := bytes.Index(e.buf[start+len(frameStart):], frameEnd)
		if rel < 0 {
			// Partial frame, keep it for the next chunk.
			break
		}
		end := start + len(frameStart) + rel + len(frameEnd)

		frame := make([]byte, end-start)
		copy(frame, e.buf[start:end])
		frames = append(frames, frame)

		e.buf = e.buf[end:]
	}

	return frames
}
