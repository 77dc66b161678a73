// Package bus publishes caption snapshots on a NATS subject.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"live-caption-service/internal/models"
	"live-caption-service/internal/observability/logging"
	"live-caption-service/internal/observability/metrics"
)

const sinkName = "nats"

// Config holds NATS connection settings.
type Config struct {
	Servers        []string
	Subject        string
	Name           string
	Token          string
	ConnectTimeout time.Duration
}

type conn interface {
	Publish(subject string, data []byte) error
	Status() nats.Status
	Drain() error
	Close()
}

// Client wraps a NATS connection used as a snapshot sink.
type Client struct {
	conn    conn
	subject string
	log     zerolog.Logger
}

// Connect dials the configured servers.
func Connect(_ context.Context, cfg Config) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}
	if cfg.Subject == "" {
		return nil, errors.New("no NATS subject configured")
	}

	options := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
	}
	if cfg.ConnectTimeout > 0 {
		options = append(options, nats.Timeout(cfg.ConnectTimeout))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}

	log := logging.WithComponent("bus")
	url := strings.Join(cfg.Servers, ",")
	nc, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info().Str("servers", url).Str("subject", cfg.Subject).Msg("Connected to NATS")
	return &Client{conn: nc, subject: cfg.Subject, log: log}, nil
}

// Name identifies the client as a snapshot sink.
func (c *Client) Name() string {
	return sinkName
}

// Publish sends the snapshot JSON on the configured subject.
func (c *Client) Publish(_ context.Context, snap models.Snapshot) error {
	start := time.Now()
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	err = c.conn.Publish(c.subject, payload)
	metrics.DefaultMetrics.RecordSinkPublish(sinkName, c.subject, err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("publish %s: %w", c.subject, err)
	}
	return nil
}

func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}

// Close drains pending messages and closes the connection.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.log.Info().Msg("Closing NATS connection")
	if err := c.conn.Drain(); err != nil {
		c.log.Warn().Err(err).Msg("NATS drain failed")
	}
	c.conn.Close()
}
