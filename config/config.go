package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Roles a process can run as. Exactly one feedback producer must exist per
// deployment: either executors run the real motion engine, or the broker hook
// simulates completion (MOVER_BROKER_SIMULATE) with no executor attached.
const (
	RoleExecutor = "executor"
	RoleBroker   = "broker"
)

const (
	TransportMQTT   = "mqtt"
	TransportPubSub = "pubsub"
)

type Config struct {
	Role      string `env:"MOVER_ROLE" envDefault:"executor"`
	Transport string `env:"MOVER_TRANSPORT" envDefault:"mqtt"`

	// MQTT transport / broker role
	BrokerURL    string `env:"MOVER_BROKER_URL" envDefault:"tcp://localhost:1883"`
	BrokerListen string `env:"MOVER_BROKER_LISTEN" envDefault:":1883"`
	ClientID     string `env:"MOVER_CLIENT_ID" envDefault:"unity-mover"`
	Simulate     bool   `env:"MOVER_BROKER_SIMULATE" envDefault:"false"`

	// Topics (wire defaults fixed for scene/agent compatibility)
	CommandTopic  string `env:"MOVER_COMMAND_TOPIC" envDefault:"unity/commands/move"`
	FeedbackTopic string `env:"MOVER_FEEDBACK_TOPIC" envDefault:"unity/feedback/move_complete"`

	// Engine
	Entities     []string      `env:"MOVER_ENTITIES" envDefault:"Cube"`
	TickInterval time.Duration `env:"MOVER_TICK_INTERVAL" envDefault:"50ms"`

	// GCP Pub/Sub transport
	GoogleProjectID string `env:"MOVER_PUBSUB_PROJECT_ID"`
	Subscription    string `env:"MOVER_PUBSUB_SUBSCRIPTION"`
	PubsubTopic     string `env:"MOVER_PUBSUB_FEEDBACK_TOPIC"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	MetricsPort int    `env:"MOVER_METRICS_PORT" envDefault:"8080"`
	LogLevel    string `env:"MOVER_LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Role = strings.ToLower(strings.TrimSpace(cfg.Role))
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	for i := range cfg.Entities {
		cfg.Entities[i] = strings.TrimSpace(cfg.Entities[i])
	}
	return cfg, nil
}

// Validate checks the combinations main refuses to start with.
func (c *Config) Validate() error {
	switch c.Role {
	case RoleExecutor, RoleBroker:
	default:
		return fmt.Errorf("unknown role %q; want %q or %q", c.Role, RoleExecutor, RoleBroker)
	}
	switch c.Transport {
	case TransportMQTT, TransportPubSub:
	default:
		return fmt.Errorf("unknown transport %q; want %q or %q", c.Transport, TransportMQTT, TransportPubSub)
	}
	if c.Role == RoleExecutor && len(c.Entities) == 0 {
		return fmt.Errorf("executor role needs at least one entity; set MOVER_ENTITIES")
	}
	if c.Role == RoleExecutor && c.Transport == TransportPubSub {
		if c.GoogleProjectID == "" || c.Subscription == "" || c.PubsubTopic == "" {
			return fmt.Errorf("pubsub transport needs MOVER_PUBSUB_PROJECT_ID, MOVER_PUBSUB_SUBSCRIPTION and MOVER_PUBSUB_FEEDBACK_TOPIC")
		}
	}
	if c.Role == RoleBroker && c.Transport != TransportMQTT {
		return fmt.Errorf("broker role only serves mqtt")
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.MetricsPort))
}

// Redacted returns a view safe for logging
func (c *Config) Redacted() map[string]any {
	return map[string]any{
		"role":                c.Role,
		"transport":           c.Transport,
		"brokerURL":           c.BrokerURL,
		"brokerListen":        c.BrokerListen,
		"simulate":            c.Simulate,
		"commandTopic":        c.CommandTopic,
		"feedbackTopic":       c.FeedbackTopic,
		"entities":            c.Entities,
		"tickInterval":        c.TickInterval.String(),
		"projectID":           c.GoogleProjectID,
		"subscription":        c.Subscription,
		"pubsubFeedbackTopic": c.PubsubTopic,
		"metricsPort":         c.MetricsPort,
		"logLevel":            c.LogLevel,
		"credentialsProvided": c.CredentialsFile != "",
	}
}
