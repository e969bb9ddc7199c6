package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/caarlos0/env"
)

// Config describes the cluster, the topic carrying storage events and the
// consumer group that reads it.
type Config struct {
	Brokers      []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic        string   `env:"KAFKA_TOPIC" envDefault:"studio.media.events"`
	GroupID      string   `env:"KAFKA_GROUP_ID" envDefault:"storage-accountant"`
	ClientID     string   `env:"KAFKA_CLIENT_ID" envDefault:"storage-accountant"`
	Username     string   `env:"KAFKA_SASL_USERNAME"`
	Password     string   `env:"KAFKA_SASL_PASSWORD"`
	EnableTLS    bool     `env:"KAFKA_TLS" envDefault:"false"`
	InitialFrom  string   `env:"KAFKA_INITIAL_OFFSET" envDefault:"newest"`
	ConsumerOpts ConsumerOptions
}

// ConsumerOptions allows customizing consumer behavior
type ConsumerOptions struct {
	AutoCommitInterval    time.Duration `env:"KAFKA_AUTO_COMMIT_INTERVAL" envDefault:"1s"`
	MaxWaitTime           time.Duration `env:"KAFKA_MAX_WAIT_TIME" envDefault:"500ms"`
	SessionTimeout        time.Duration `env:"KAFKA_SESSION_TIMEOUT" envDefault:"10s"`
	HeartbeatInterval     time.Duration `env:"KAFKA_HEARTBEAT_INTERVAL" envDefault:"3s"`
	RebalanceTimeout      time.Duration `env:"KAFKA_REBALANCE_TIMEOUT" envDefault:"60s"`
	RebalanceRetryMax     int           `env:"KAFKA_REBALANCE_RETRY_MAX" envDefault:"4"`
	RebalanceRetryBackoff time.Duration `env:"KAFKA_REBALANCE_RETRY_BACKOFF" envDefault:"2s"`
}

func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load kafka config: %w", err)
	}
	if err := env.Parse(&cfg.ConsumerOpts); err != nil {
		return Config{}, fmt.Errorf("failed to load kafka consumer options: %w", err)
	}
	return cfg, nil
}

func (c Config) initialOffset() (int64, error) {
	switch strings.ToLower(c.InitialFrom) {
	case "", "newest":
		return sarama.OffsetNewest, nil
	case "oldest":
		return sarama.OffsetOldest, nil
	default:
		return 0, fmt.Errorf("unsupported initial offset %q (want oldest or newest)", c.InitialFrom)
	}
}

// baseConfig applies the connection settings shared by producer and consumer.
func (c Config) baseConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_1_0_0
	if c.ClientID != "" {
		config.ClientID = c.ClientID
	}
	config.Net.TLS.Enable = c.EnableTLS
	if c.Username != "" {
		config.Net.SASL.Enable = true
		config.Net.SASL.User = c.Username
		config.Net.SASL.Password = c.Password
	}
	return config
}

// ConsumerConfig translates Config into a sarama consumer-group config.
func (c Config) ConsumerConfig() (*sarama.Config, error) {
	offset, err := c.initialOffset()
	if err != nil {
		return nil, err
	}
	o := c.ConsumerOpts

	config := c.baseConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = offset
	config.Consumer.Offsets.AutoCommit.Enable = true
	if o.AutoCommitInterval > 0 {
		config.Consumer.Offsets.AutoCommit.Interval = o.AutoCommitInterval
	}
	if o.MaxWaitTime > 0 {
		config.Consumer.MaxWaitTime = o.MaxWaitTime
	}
	if o.SessionTimeout > 0 {
		config.Consumer.Group.Session.Timeout = o.SessionTimeout
	}
	if o.HeartbeatInterval > 0 {
		config.Consumer.Group.Heartbeat.Interval = o.HeartbeatInterval
	}
	if o.RebalanceTimeout > 0 {
		config.Consumer.Group.Rebalance.Timeout = o.RebalanceTimeout
	}
	if o.RebalanceRetryMax > 0 {
		config.Consumer.Group.Rebalance.Retry.Max = o.RebalanceRetryMax
	}
	if o.RebalanceRetryBackoff > 0 {
		config.Consumer.Group.Rebalance.Retry.Backoff = o.RebalanceRetryBackoff
	}
	return config, nil
}

// ProducerConfig translates Config into a sarama sync-producer config.
func (c Config) ProducerConfig() *sarama.Config {
	config := c.baseConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Retry.Max = 5
	config.Producer.Retry.Backoff = 200 * time.Millisecond
	return config
}
