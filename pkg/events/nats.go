package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig configures the NATS notifier.
type NATSConfig struct {
	URL           string
	SubjectPrefix string // Defaults to "translations.migrations".
	Name          string // Connection name. Defaults to "migration-server".
}

// NATSNotifier publishes events to NATS, one subject per event type:
// <prefix>.<type>, e.g. translations.migrations.migration-applied.
type NATSNotifier struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

// NewNATSNotifier connects to NATS with automatic reconnects.
func NewNATSNotifier(cfg NATSConfig, logger *slog.Logger) (*NATSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "translations.migrations"
	}
	if cfg.Name == "" {
		cfg.Name = "migration-server"
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSNotifier{nc: nc, prefix: cfg.SubjectPrefix, logger: logger}, nil
}

// Notify implements Notifier. Delivery failures are logged, never returned.
func (n *NATSNotifier) Notify(_ context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("marshal event", "type", event.Type, "error", err)
		return
	}
	subject := n.subjectFor(event.Type)
	if err := n.nc.Publish(subject, payload); err != nil {
		n.logger.Error("publish event", "subject", subject, "error", err)
	}
}

func (n *NATSNotifier) subjectFor(t Type) string {
	return n.prefix + "." + string(t)
}

// Close drains and closes the connection.
func (n *NATSNotifier) Close() {
	if n.nc != nil {
		_ = n.nc.Drain()
		n.nc.Close()
	}
}
