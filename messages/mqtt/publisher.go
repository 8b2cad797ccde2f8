package mqtt

import (
	"context"
	"encoding/json"

	"unity-mover/messages"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Publisher sends wire messages at QoS 1. It serves both directions: feedback
// from the executor, commands from the agent-side client.
type Publisher struct {
	cli           paho.Client
	commandTopic  string
	feedbackTopic string
}

func NewPublisher(cli paho.Client, commandTopic, feedbackTopic string) *Publisher {
	return &Publisher{cli: cli, commandTopic: commandTopic, feedbackTopic: feedbackTopic}
}

func (p *Publisher) PublishFeedback(ctx context.Context, fb *messages.MoveCompletionFeedback) error {
	b, err := json.Marshal(fb)
	if err != nil {
		log.Error().Err(err).Interface("feedback", fb).Msg("mqtt: failed to marshal feedback")
		return err
	}
	if err := p.publish(ctx, p.feedbackTopic, b); err != nil {
		log.Error().Err(err).Str("requestId", fb.RequestID).Msg("mqtt: failed to publish feedback")
		return err
	}
	log.Debug().Str("requestId", fb.RequestID).Str("status", string(fb.Status)).Msg("mqtt: published feedback")
	return nil
}

func (p *Publisher) PublishCommand(ctx context.Context, cmd *messages.MoveCommand) error {
	b, err := json.Marshal(cmd)
	if err != nil {
		log.Error().Err(err).Interface("command", cmd).Msg("mqtt: failed to marshal command")
		return err
	}
	if err := p.publish(ctx, p.commandTopic, b); err != nil {
		log.Error().Err(err).Str("requestId", cmd.RequestID).Msg("mqtt: failed to publish command")
		return err
	}
	log.Debug().Str("object", cmd.ObjectName).Str("requestId", cmd.RequestID).Msg("mqtt: published command")
	return nil
}

func (p *Publisher) publish(ctx context.Context, topic string, payload []byte) error {
	tok := p.cli.Publish(topic, 1, false, payload)
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
