package gateway

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/isqad/livecam-gateway/internal/eventbus"
)

func newTestPackager(t *testing.T) (*HlsPackager, *fakeSpawner, string) {
	t.Helper()

	scratch := t.TempDir()
	spawner := &fakeSpawner{}
	registry := NewProcessRegistry(spawner, scratch, eventbus.Noop{})

	return NewHlsPackager(registry, scratch, "/api/v1/live/hls/segment"), spawner, scratch
}

func TestHlsManifestPlaceholderBeforeFirstSegment(t *testing.T) {
	packager, spawner, _ := newTestPackager(t)

	manifest, err := packager.Manifest(SourceDescriptor{URL: "rtsp://cam/1"})

	assert.Nil(t, err)
	assert.Len(t, spawner.spawned, 1)
	assert.True(t, strings.HasPrefix(manifest, "#EXTM3U"))
	assert.NotContains(t, manifest, ".ts")
}

func TestHlsManifestRewritesSegmentLines(t *testing.T) {
	packager, spawner, scratch := newTestPackager(t)

	raw := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		"#EXT-X-TARGETDURATION:1",
		"#EXT-X-MEDIA-SEQUENCE:0",
		"#EXTINF:1.000000,",
		"seg0.ts",
		"#EXTINF:1.000000,",
		"seg1.ts",
		"",
	}, "\n")
	assert.Nil(t, os.WriteFile(filepath.Join(scratch, ManifestFilename), []byte(raw), 0o644))

	manifest, err := packager.Manifest(SourceDescriptor{URL: "rtsp://cam/1"})

	assert.Nil(t, err)
	assert.Len(t, spawner.spawned, 1)

	lines := strings.Split(manifest, "\n")
	assert.Equal(t, "#EXTM3U", lines[0])
	assert.Equal(t, "#EXT-X-VERSION:3", lines[1])
	assert.Equal(t, "#EXT-X-TARGETDURATION:1", lines[2])
	assert.Equal(t, "#EXT-X-MEDIA-SEQUENCE:0", lines[3])
	assert.Equal(t, "#EXTINF:1.000000,", lines[4])
	assert.Equal(t, "/api/v1/live/hls/segment?file=seg0.ts", lines[5])
	assert.Equal(t, "/api/v1/live/hls/segment?file=seg1.ts", lines[7])
}

func TestHlsManifestReusesTranscoderForSameURL(t *testing.T) {
	packager, spawner, _ := newTestPackager(t)

	_, err := packager.Manifest(SourceDescriptor{URL: "rtsp://cam/1"})
	assert.Nil(t, err)
	_, err = packager.Manifest(SourceDescriptor{URL: "rtsp://cam/1"})
	assert.Nil(t, err)

	assert.Len(t, spawner.spawned, 1)
}

func TestHlsSegmentRejectsPathEscape(t *testing.T) {
	packager, _, scratch := newTestPackager(t)

	// A sibling file that must never be reachable.
	assert.Nil(t, os.WriteFile(filepath.Join(scratch, "secret"), []byte("x"), 0o644))

	for _, name := range []string{
		"../../etc/passwd",
		"..",
		"a/b.ts",
		`a\b.ts`,
		"",
	} {
		_, err := packager.Segment(name)
		assert.ErrorIs(t, err, ErrBadSegmentName, "name %q", name)
	}
}

func TestHlsSegmentNotFound(t *testing.T) {
	packager, _, _ := newTestPackager(t)

	_, err := packager.Segment("seg42.ts")

	assert.ErrorIs(t, err, ErrSegmentNotFound)
}

func TestHlsSegmentReturnsBytes(t *testing.T) {
	packager, _, scratch := newTestPackager(t)

	payload := []byte{0x47, 0x00, 0x01, 0x02}
	assert.Nil(t, os.WriteFile(filepath.Join(scratch, "seg0.ts"), payload, 0o644))

	data, err := packager.Segment("seg0.ts")

	assert.Nil(t, err)
	assert.Equal(t, payload, data)
}
