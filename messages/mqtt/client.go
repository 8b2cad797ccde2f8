// Package mqtt is the reference transport: paho clients talking to the
// embedded (or any external) MQTT broker over the two fixed wire topics.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const connectTimeout = 10 * time.Second

// Connect dials the broker and blocks until the session is up or the timeout
// expires. Reconnects after that are handled by paho.
func Connect(brokerURL, clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOrderMatters(true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Str("broker", brokerURL).Msg("mqtt: connection lost, reconnecting")
		}).
		SetOnConnectHandler(func(_ paho.Client) {
			log.Info().Str("broker", brokerURL).Str("clientId", clientID).Msg("mqtt: connected")
		})

	cli := paho.NewClient(opts)
	tok := cli.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout after %s", brokerURL, connectTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", brokerURL, err)
	}
	return cli, nil
}
