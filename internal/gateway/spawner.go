package gateway

import (
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Process is a running transcoder seen by the gateway: an output pipe and
// a way to kill it. Transcoders frequently ignore polite signals, so there
// is no graceful variant.
type Process interface {
	Pid() int
	Stdout() io.ReadCloser
	Stderr() io.ReadCloser
	Kill() error
	Wait() error
}

// Spawner launches transcoder processes. Injected into ProcessRegistry and
// MjpegStreamer so tests can substitute a fake.
type Spawner interface {
	Spawn(args []string) (Process, error)
}

// FFmpegSpawner runs the ffmpeg binary found at Path.
type FFmpegSpawner struct {
	Path string
}

func NewFFmpegSpawner(path string) *FFmpegSpawner {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegSpawner{Path: path}
}

func (s *FFmpegSpawner) Spawn(args []string) (Process, error) {
	cmd := exec.Command(s.Path, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscoderLaunch, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscoderLaunch, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscoderLaunch, err)
	}

	log.Debug().
		Str("service", "spawner").
		Int("pid", cmd.Process.Pid).
		Strs("args", args).
		Msg("transcoder started")

	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (p *execProcess) Pid() int              { return p.cmd.Process.Pid }
func (p *execProcess) Stdout() io.ReadCloser { return p.stdout }
func (p *execProcess) Stderr() io.ReadCloser { return p.stderr }
func (p *execProcess) Kill() error           { return p.cmd.Process.Kill() }
func (p *execProcess) Wait() error           { return p.cmd.Wait() }

// ManifestFilename is the fixed name the HLS transcoder writes its
// playlist under, inside the scratch directory.
const ManifestFilename = "index.m3u8"

// HlsArgs builds the argument list for the HLS packaging transcoder:
// TCP transport, no audio, video stream-copy, 1s segments, a 6-segment
// sliding window with expired segments deleted, keyframe-aligned segments.
func HlsArgs(sourceURL, scratchDir string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-rtsp_transport", "tcp",
		"-i", sourceURL,
		"-an",
		"-c:v", "copy",
		"-f", "hls",
		"-hls_time", "1",
		"-hls_list_size", "6",
		"-hls_flags", "delete_segments+independent_segments",
		filepath.Join(scratchDir, ManifestFilename),
	}
}

// MjpegArgs builds the argument list for the per-connection MJPEG
// transcoder: frame-rate capped, re-encoded JPEG sequence on stdout.
func MjpegArgs(sourceURL string, fps int) []string {
	if fps <= 0 {
		fps = 10
	}
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-rtsp_transport", "tcp",
		"-i", sourceURL,
		"-an",
		"-vf", "fps=" + strconv.Itoa(fps),
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"pipe:1",
	}
}
