package broker

import (
	"encoding/json"
	"time"

	"unity-mover/messages"
	"unity-mover/metrics"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/rs/zerolog/log"
)

// inlinePublisher is the slice of *mqtt.Server the hook needs to push
// synthesized feedback through the broker's inline client.
type inlinePublisher interface {
	Publish(topic string, payload []byte, retain bool, qos byte) error
}

// ObserverHook audits every publish on the command topic. With simulate on it
// also acts as a stand-in executor: it fabricates an instant success feedback,
// for deployments with no real motion engine attached (demos, agent tests).
// Simulate must stay off whenever an executor consumes the same command topic,
// otherwise two producers would answer one request.
type ObserverHook struct {
	mqtt.HookBase
	server        inlinePublisher
	commandTopic  string
	feedbackTopic string
	simulate      bool
	clock         func() time.Time
}

func NewObserverHook(server inlinePublisher, commandTopic, feedbackTopic string, simulate bool) *ObserverHook {
	return &ObserverHook{
		server:        server,
		commandTopic:  commandTopic,
		feedbackTopic: feedbackTopic,
		simulate:      simulate,
		clock:         time.Now,
	}
}

// ID returns the ID of the hook.
func (h *ObserverHook) ID() string {
	return "move-command-observer"
}

// Provides indicates the methods that the hook provides.
func (h *ObserverHook) Provides(p byte) bool {
	return p == mqtt.OnPublish
}

// OnPublish is called for every PUBLISH packet the broker accepts. The packet
// is always passed through unchanged; observation never blocks delivery.
func (h *ObserverHook) OnPublish(cl *mqtt.Client, pk packets.Packet) (packets.Packet, error) {
	if pk.TopicName != h.commandTopic {
		return pk, nil
	}
	metrics.ObservedCommands.Inc()

	cmd, err := messages.DecodeMoveCommand(pk.Payload)
	if err != nil {
		// No trustworthy object or request id, so no feedback either
		log.Error().Err(err).Str("topic", pk.TopicName).Str("client", clientID(cl)).Msg("broker: malformed move command observed")
		return pk, nil
	}
	log.Info().Str("topic", pk.TopicName).Str("client", clientID(cl)).Str("object", cmd.ObjectName).Floats64("target", cmd.TargetPosition).Str("requestId", cmd.RequestID).Msg("broker: move command observed")

	if !h.simulate {
		return pk, nil
	}
	if len(cmd.TargetPosition) != 3 {
		// The stand-in has no registry to report a current position from, so a
		// wrong-arity command is only logged here; the agent's own request
		// timeout covers it.
		log.Warn().Str("object", cmd.ObjectName).Str("requestId", cmd.RequestID).Int("arity", len(cmd.TargetPosition)).Msg("broker: not simulating invalid target_position")
		return pk, nil
	}

	// Stand-in executor: the object is assumed to reach the target instantly
	fb := messages.NewFeedback(cmd.ObjectName, cmd.TargetPosition, messages.StatusSuccess, h.clock(), cmd.RequestID)
	payload, err := json.Marshal(fb)
	if err != nil {
		log.Error().Err(err).Str("requestId", cmd.RequestID).Msg("broker: failed to marshal simulated feedback")
		return pk, nil
	}
	if err := h.server.Publish(h.feedbackTopic, payload, false, 0); err != nil {
		metrics.PublishFailures.Inc()
		log.Error().Err(err).Str("requestId", cmd.RequestID).Msg("broker: failed to publish simulated feedback")
		return pk, nil
	}
	metrics.MovesTotal.WithLabelValues(string(messages.StatusSuccess)).Inc()
	log.Info().Str("object", cmd.ObjectName).Str("requestId", cmd.RequestID).Msg("broker: published simulated completion feedback")
	return pk, nil
}

func clientID(cl *mqtt.Client) string {
	if cl == nil {
		return "inline"
	}
	return cl.ID
}
