package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/sinyoro/market-service/internal/config"
	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

const DefaultSyncedSubject = "market.listing.synced"

// Publisher is the synchronization collaborator: a listing counts as synced
// once the server has acknowledged the publish.
type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  *logger.Logger
}

func NewNATSPublisher(cfg *config.NATSConfig, log *logger.Logger) (*Publisher, error) {
	log = log.Named("nats")
	opts := []nats.Option{
		nats.Name("market-service"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Error("NATS error", zap.String("subject", subject), zap.Error(err))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("Successfully connected to NATS", zap.String("url", nc.ConnectedUrl()))

	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSyncedSubject
	}
	return &Publisher{nc: nc, subject: subject, logger: log}, nil
}

// syncPayload leaves the inline image out; it can exceed the server's max payload.
func syncPayload(listing *domain.Listing) ([]byte, error) {
	out := listing.Clone()
	out.ImageData = nil
	out.Synced = true
	return json.Marshal(out)
}

func (p *Publisher) Sync(ctx context.Context, listing *domain.Listing) error {
	data, err := syncPayload(listing)
	if err != nil {
		return fmt.Errorf("failed to marshal listing for %s: %w", p.subject, err)
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		p.logger.Error("Failed to publish NATS message",
			zap.String("subject", p.subject),
			zap.String("listing_id", listing.ID),
			zap.Error(err))
		return fmt.Errorf("failed to publish NATS message for %s: %w", p.subject, err)
	}
	// Flush round-trips to the server so a dropped connection surfaces here.
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush NATS message for %s: %w", p.subject, err)
	}

	p.logger.Debug("Published NATS message",
		zap.String("subject", p.subject),
		zap.String("listing_id", listing.ID))
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil && !p.nc.IsClosed() {
		if err := p.nc.Drain(); err != nil {
			p.logger.Error("Error draining NATS connection", zap.Error(err))
		}
		p.nc.Close()
	}
}
