// Package broker embeds the MQTT broker the scene and agent connect to. A
// publish hook observes every move command for auditing and can stand in for
// the motion engine in executor-less deployments.
package broker

import (
	"fmt"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Listen        string
	CommandTopic  string
	FeedbackTopic string
	// Simulate makes the observer hook fabricate instant success feedback.
	// Exactly one feedback producer per deployment: never enable this with a
	// real executor subscribed to the command topic.
	Simulate bool
}

type Broker struct {
	srv *mqtt.Server
}

func New(opts Options) (*Broker, error) {
	srv := mqtt.New(&mqtt.Options{InlineClient: true})

	// Auth is out of scope; accept every connection
	if err := srv.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("add auth hook: %w", err)
	}
	hook := NewObserverHook(srv, opts.CommandTopic, opts.FeedbackTopic, opts.Simulate)
	if err := srv.AddHook(hook, nil); err != nil {
		return nil, fmt.Errorf("add observer hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{
		ID:      "mover",
		Type:    "mqtt",
		Address: opts.Listen,
	})
	if err := srv.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("add listener %s: %w", opts.Listen, err)
	}

	log.Info().Str("listen", opts.Listen).Bool("simulate", opts.Simulate).Msg("broker: configured")
	return &Broker{srv: srv}, nil
}

// Serve blocks until the broker stops.
func (b *Broker) Serve() error {
	return b.srv.Serve()
}

func (b *Broker) Close() error {
	return b.srv.Close()
}
