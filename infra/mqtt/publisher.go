// Package mqtt hands finished rankings to the external delivery
// coordination system over MQTT. The engine itself never depends on the
// broker: publishing is optional and failures only cost the notification.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/bluecorridor/driftcast/core/logger"
	"github.com/bluecorridor/driftcast/core/optimize"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Broker   string `json:"broker" yaml:"broker"`
	ClientID string `json:"client_id" yaml:"client_id"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Topic    string `json:"topic" yaml:"topic"`
	QoS      byte   `json:"qos" yaml:"qos"`
}

// SetDefaults fills the client identity and topic.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "driftcast"
	}
	if c.Topic == "" {
		c.Topic = "driftcast/rankings"
	}
}

// Validate checks mandatory fields when publishing is enabled.
func (c Config) Validate() error {
	if c.Enabled && c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required when publishing is enabled")
	}
	return nil
}

// RankingPublisher publishes rankings as JSON payloads.
type RankingPublisher struct {
	cli   paho.Client
	topic string
	qos   byte
	log   logger.Logger
}

// NewRankingPublisher connects to the broker.
func NewRankingPublisher(cfg Config, log logger.Logger) (*RankingPublisher, error) {
	if log == nil {
		log = logger.Nop{}
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetConnectTimeout(10 * time.Second)
	cli := paho.NewClient(opts)
	tok := cli.Connect()
	if !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, tok.Error())
	}
	return &RankingPublisher{cli: cli, topic: cfg.Topic, qos: cfg.QoS, log: log}, nil
}

// Publish sends the ranking to the configured topic.
func (p *RankingPublisher) Publish(rank *optimize.Ranking) error {
	payload, err := json.Marshal(rank)
	if err != nil {
		return fmt.Errorf("mqtt: encode ranking: %w", err)
	}
	tok := p.cli.Publish(p.topic, p.qos, false, payload)
	if !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
		return fmt.Errorf("mqtt publish %s: %w", p.topic, tok.Error())
	}
	p.log.Infof("published ranking %s to %s", rank.RunID, p.topic)
	return nil
}

// Close disconnects from the broker.
func (p *RankingPublisher) Close() {
	p.cli.Disconnect(250)
}
