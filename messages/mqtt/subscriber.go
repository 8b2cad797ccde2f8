package mqtt

import (
	"context"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Subscriber delivers raw payloads from one topic. Paho runs the message
// callback on a single router goroutine per subscription, which preserves the
// per-topic arrival order the engine relies on.
type Subscriber struct {
	cli   paho.Client
	topic string
}

func NewSubscriber(cli paho.Client, topic string) *Subscriber {
	return &Subscriber{cli: cli, topic: topic}
}

// Start subscribes and blocks until ctx is cancelled. Handler errors are the
// consumer's own outcome (MQTT has no redelivery to request), so they are
// logged here and the message is considered consumed either way.
func (s *Subscriber) Start(ctx context.Context, handler func(ctx context.Context, payload []byte) error) error {
	tok := s.cli.Subscribe(s.topic, 1, func(_ paho.Client, m paho.Message) {
		log.Debug().Str("topic", m.Topic()).Int("size", len(m.Payload())).Msg("mqtt: received message")
		if err := handler(ctx, m.Payload()); err != nil {
			log.Error().Err(err).Str("topic", m.Topic()).Msg("mqtt: handler failed")
		}
	})
	if !tok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt subscribe %s: timeout after %s", s.topic, connectTimeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", s.topic, err)
	}
	log.Info().Str("topic", s.topic).Msg("mqtt: subscribed")

	<-ctx.Done()
	if tok := s.cli.Unsubscribe(s.topic); tok.WaitTimeout(connectTimeout) {
		if err := tok.Error(); err != nil {
			log.Warn().Err(err).Str("topic", s.topic).Msg("mqtt: unsubscribe failed")
		}
	}
	return nil
}
