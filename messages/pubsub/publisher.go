// Package pubsub is the cloud deployment transport: the command subscription
// and feedback topic live on Google Cloud Pub/Sub instead of an MQTT broker.
package pubsub

import (
	"context"
	"encoding/json"
	"sync"

	"unity-mover/messages"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// Publisher is shared by the scheduler's tick goroutine and the subscriber's
// rejection path, so the lazy client init is serialized. A failed init is
// retried on the next publish rather than sticking.
type Publisher struct {
	projectID     string
	feedbackTopic string
	credsFile     string

	mu     sync.Mutex
	client *gpubsub.Client
	topic  *gpubsub.Topic
}

func NewPublisher(projectID, feedbackTopic, credsFile string) *Publisher {
	return &Publisher{projectID: projectID, feedbackTopic: feedbackTopic, credsFile: credsFile}
}

// topicHandle returns the feedback topic, creating the client exactly once
// even under concurrent first publishes.
func (p *Publisher) topicHandle(ctx context.Context) (*gpubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.topic, nil
	}
	var (
		client *gpubsub.Client
		err    error
	)
	if p.credsFile != "" {
		log.Debug().Str("projectID", p.projectID).Str("topic", p.feedbackTopic).Str("credsFile", p.credsFile).Msg("initializing pubsub publisher with explicit credentials")
		client, err = gpubsub.NewClient(ctx, p.projectID, option.WithCredentialsFile(p.credsFile))
	} else {
		log.Debug().Str("projectID", p.projectID).Str("topic", p.feedbackTopic).Msg("initializing pubsub publisher with default credentials")
		client, err = gpubsub.NewClient(ctx, p.projectID)
	}
	if err != nil {
		log.Error().Err(err).Str("projectID", p.projectID).Str("topic", p.feedbackTopic).Msg("failed to create pubsub client for publisher")
		return nil, err
	}
	p.client = client
	p.topic = client.Topic(p.feedbackTopic)
	log.Info().Str("topic", p.feedbackTopic).Msg("pubsub publisher initialized")
	return p.topic, nil
}

func (p *Publisher) PublishFeedback(ctx context.Context, fb *messages.MoveCompletionFeedback) error {
	topic, err := p.topicHandle(ctx)
	if err != nil {
		return err
	}
	b, err := json.Marshal(fb)
	if err != nil {
		log.Error().Err(err).Interface("feedback", fb).Msg("failed to marshal move feedback")
		return err
	}
	// Publish and wait for server ack
	r := topic.Publish(ctx, &gpubsub.Message{Data: b})
	id, err := r.Get(ctx)
	if err != nil {
		log.Error().Err(err).Str("requestId", fb.RequestID).Msg("failed to publish move feedback")
		return err
	}
	log.Debug().Str("messageID", id).Str("requestId", fb.RequestID).Str("status", string(fb.Status)).Msg("published move feedback")
	return nil
}
