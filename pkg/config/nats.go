package config

import (
	"fmt"
	"strings"
	"time"
)

// NATSConfig is optional: an empty URL disables event publishing.
type NATSConfig struct {
	Url        string           `koanf:"url"`
	Timeout    time.Duration    `koanf:"timeout"`
	Stream     string           `koanf:"stream"`
	Subscriber SubscriberConfig `koanf:"subscriber"`
}

// SubscriberConfig tunes a JetStream pull consumer.
type SubscriberConfig struct {
	Enabled bool `koanf:"enabled"`
	// Consumer is the durable consumer name. Empty creates an ephemeral consumer per process.
	Consumer string        `koanf:"consumer"`
	Workers  int           `koanf:"workers"`
	Timeout  time.Duration `koanf:"timeout"`
	Interval time.Duration `koanf:"interval"`
}

// Enabled reports whether a NATS server has been configured.
func (c *NATSConfig) Enabled() bool {
	return c.Url != ""
}

// String returns a string representation of the NATS configuration.
func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS ---\n")
	if !c.Enabled() {
		b.WriteString("  disabled\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("  url: %s\n", MaskURL(c.Url)))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  stream: %s\n", c.Stream))
	b.WriteString(fmt.Sprintf("  subscriber.enabled: %t\n", c.Subscriber.Enabled))
	if c.Subscriber.Enabled {
		b.WriteString(fmt.Sprintf("  subscriber.consumer: %s\n", c.Subscriber.Consumer))
		b.WriteString(fmt.Sprintf("  subscriber.workers: %d\n", c.Subscriber.Workers))
		b.WriteString(fmt.Sprintf("  subscriber.timeout: %s\n", c.Subscriber.Timeout))
		b.WriteString(fmt.Sprintf("  subscriber.interval: %s\n", c.Subscriber.Interval))
	}
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats dial timeout is not configured")
	}
	if c.Stream == "" {
		return fmt.Errorf("nats stream is not configured")
	}
	return c.Subscriber.Validate()
}

func (c *SubscriberConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Workers <= 0 {
		return fmt.Errorf("nats.subscriber.workers must be greater than 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats.subscriber.timeout must be greater than 0")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("nats.subscriber.interval must be greater than 0")
	}
	return nil
}
