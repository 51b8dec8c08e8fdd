package eventbus

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// SubjectPrefix is prepended to the event type to form the NATS subject,
// e.g. "livecam.events.transcoder.started".
const SubjectPrefix = "livecam.events."

// NatsPublisher publishes gateway events to a NATS server.
type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(addr string) (*NatsPublisher, error) {
	nc, err := nats.Connect(addr, nats.NoEcho())
	if err != nil {
		return nil, err
	}

	log.Info().Str("service", "eventbus").Str("addr", addr).Msg("connected to NATS")

	return &NatsPublisher{nc: nc}, nil
}

func (p *NatsPublisher) Publish(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.nc.Publish(SubjectPrefix+event.Type, payload)
}

func (p *NatsPublisher) Close() error {
	return p.nc.Drain()
}
