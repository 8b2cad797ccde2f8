package pubsub

import (
	"context"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

type Subscriber struct {
	projectID        string
	subscriptionName string
	credsFile        string
	client           *gpubsub.Client
	sub              *gpubsub.Subscription
}

func NewSubscriber(projectID, subscriptionName, credsFile string) *Subscriber {
	return &Subscriber{projectID: projectID, subscriptionName: subscriptionName, credsFile: credsFile}
}

// Start receives raw command payloads. Decoding and validation stay with the
// engine; a handler error here means a transport-level problem (e.g. feedback
// publish failed), so the message is nacked for redelivery. Everything else is
// acked, including payloads the engine rejected as poison.
func (s *Subscriber) Start(ctx context.Context, handler func(ctx context.Context, payload []byte) error) error {
	if s.client == nil {
		var (
			client *gpubsub.Client
			err    error
		)
		if s.credsFile != "" {
			log.Debug().Str("projectID", s.projectID).Str("subscription", s.subscriptionName).Str("credsFile", s.credsFile).Msg("initializing pubsub subscriber with explicit credentials")
			client, err = gpubsub.NewClient(ctx, s.projectID, option.WithCredentialsFile(s.credsFile))
		} else {
			log.Debug().Str("projectID", s.projectID).Str("subscription", s.subscriptionName).Msg("initializing pubsub subscriber with default credentials")
			client, err = gpubsub.NewClient(ctx, s.projectID)
		}
		if err != nil {
			log.Error().Err(err).Str("projectID", s.projectID).Str("subscription", s.subscriptionName).Msg("failed to create pubsub client for subscriber")
			return err
		}
		s.client = client
		s.sub = client.Subscription(s.subscriptionName)
		// One message at a time preserves per-entity command order
		s.sub.ReceiveSettings.MaxOutstandingMessages = 1
		s.sub.ReceiveSettings.NumGoroutines = 1
		log.Info().Str("subscription", s.subscriptionName).Msg("pubsub subscriber initialized")
	}

	// Receive blocks; respects ctx cancellation
	return s.sub.Receive(ctx, func(ctx context.Context, m *gpubsub.Message) {
		log.Debug().Str("messageID", m.ID).Int("size", len(m.Data)).Msg("received pubsub message")
		recvAt := time.Now()
		if err := handler(ctx, m.Data); err != nil {
			log.Error().Err(err).Str("messageID", m.ID).Msg("handler failed; will retry")
			m.Nack()
			return
		}
		log.Debug().Str("messageID", m.ID).Dur("latency", time.Since(recvAt)).Msg("handler done; acking message")
		m.Ack()
	})
}
