package gateway

import "errors"

var (
	// ErrNoSourceURL means the request carried no source URL and no
	// default is configured. Nothing has been spawned when it is returned.
	ErrNoSourceURL = errors.New("gateway: no source url given and no default configured")

	// ErrTranscoderLaunch means the transcoder process could not be started.
	ErrTranscoderLaunch = errors.New("gateway: can't launch transcoder")

	// ErrSegmentNotFound means the requested segment file does not exist
	// in the scratch directory.
	ErrSegmentNotFound = errors.New("gateway: segment not found")

	// ErrBadSegmentName means the segment name carried a path separator
	// or a parent-directory component.
	ErrBadSegmentName = errors.New("gateway: invalid segment name")

	// ErrUpstreamNegotiation means both the primary and the fallback WHEP
	// targets rejected the offer or answered with malformed SDP.
	ErrUpstreamNegotiation = errors.New("gateway: all upstream targets rejected the offer")

	// ErrUpstreamTeardown means every teardown candidate failed at the
	// network level, without any HTTP response at all.
	ErrUpstreamTeardown = errors.New("gateway: can't reach any upstream for teardown")
)
