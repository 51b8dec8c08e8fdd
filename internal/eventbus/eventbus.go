package eventbus

import "time"

// Event types published by the gateway.
const (
	TranscoderStarted  = "transcoder.started"
	TranscoderReplaced = "transcoder.replaced"
	TranscoderStopped  = "transcoder.stopped"
	MjpegConnected     = "mjpeg.connected"
	MjpegDisconnected  = "mjpeg.disconnected"
	WhepNegotiated     = "whep.negotiated"
	WhepTornDown       = "whep.torn_down"
)

// Event is one gateway lifecycle notification. Location is set only on
// WHEP teardown events and carries the opaque session handle.
type Event struct {
	Type      string    `json:"type"`
	StreamID  string    `json:"stream_id,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	Location  string    `json:"location,omitempty"`
	At        time.Time `json:"at"`
}

func NewEvent(eventType, streamID, sourceURL string) Event {
	return Event{
		Type:      eventType,
		StreamID:  streamID,
		SourceURL: sourceURL,
		At:        time.Now().UTC(),
	}
}

// NewLocationEvent builds an event identified by a session location
// handle rather than a stream.
func NewLocationEvent(eventType, location string) Event {
	return Event{
		Type:     eventType,
		Location: location,
		At:       time.Now().UTC(),
	}
}

// Publisher sends gateway lifecycle events to interested services.
type Publisher interface {
	Publish(event Event) error
}

// Noop is the publisher used when no event bus is configured.
type Noop struct{}

func (Noop) Publish(Event) error { return nil }
