package gateway

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ManifestContentType is the media type of the rewritten HLS playlist.
const ManifestContentType = "application/vnd.apple.mpegurl"

// SegmentContentType is the media type of transport-stream segments.
const SegmentContentType = "video/mp2t"

// placeholderManifest is served while the transcoder has not yet written
// its first segment. It is a valid empty live playlist; players poll it
// until segments appear.
const placeholderManifest = "#EXTM3U\n" +
	"#EXT-X-VERSION:3\n" +
	"#EXT-X-TARGETDURATION:1\n" +
	"#EXT-X-MEDIA-SEQUENCE:0\n"

// HlsPackager exposes the manifest and segments produced by one registry
// managed transcoder writing into a scratch directory.
type HlsPackager struct {
	registry     *ProcessRegistry
	scratchDir   string
	segmentRoute string
}

// NewHlsPackager returns a packager serving files from scratchDir.
// segmentRoute is the gateway-relative URL segment fetches are rewritten
// to, e.g. "/api/v1/live/hls/segment".
func NewHlsPackager(registry *ProcessRegistry, scratchDir, segmentRoute string) *HlsPackager {
	return &HlsPackager{
		registry:     registry,
		scratchDir:   scratchDir,
		segmentRoute: segmentRoute,
	}
}

// Manifest ensures a transcoder is running for src and returns the current
// playlist with every segment line rewritten to a gateway segment URL.
// A transcoder that has not yet produced the manifest file is not an
// error: a placeholder playlist is returned instead.
func (p *HlsPackager) Manifest(src SourceDescriptor) (string, error) {
	handle, err := p.registry.Acquire(src)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(filepath.Join(handle.WorkDir, ManifestFilename))
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().
				Str("service", "hls").
				Str("url", src.URL).
				Msg("manifest not written yet, serve placeholder")
			return placeholderManifest, nil
		}
		return "", err
	}

	return p.rewriteManifest(string(raw)), nil
}

// rewriteManifest replaces every transport-stream segment line with a
// gateway-relative fetch URL carrying the filename as a query parameter.
// Directives and comments pass through unchanged.
func (p *HlsPackager) rewriteManifest(manifest string) string {
	lines := strings.Split(manifest, "\n")
	for i, line := range lines {
		name := strings.TrimSpace(line)
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		if !strings.HasSuffix(name, ".ts") {
			continue
		}
		lines[i] = p.segmentRoute + "?file=" + url.QueryEscape(name)
	}
	return strings.Join(lines, "\n")
}

// Segment returns the bytes of one segment file. The name is restricted
// to a bare filename before any filesystem access; anything carrying a
// path separator or parent-directory component is rejected.
func (p *HlsPackager) Segment(filename string) ([]byte, error) {
	if filename == "" ||
		strings.ContainsAny(filename, `/\`) ||
		strings.Contains(filename, "..") ||
		filepath.Base(filename) != filename {
		return nil, ErrBadSegmentName
	}

	data, err := os.ReadFile(filepath.Join(p.scratchDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSegmentNotFound
		}
		return nil, err
	}

	return data, nil
}
