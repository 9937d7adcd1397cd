package revalidate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cartcraft/storefront/internal/events"
	"github.com/cartcraft/storefront/pkg/config"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"
)

// ackableMsg is the part of jetstream.Msg the subscriber needs.
type ackableMsg interface {
	Data() []byte
	Subject() string
	Ack() error
	Nak() error
	Term() error
}

// Subscriber drops cached pages named by catalog events, so replicas sharing one
// stream do not keep serving pages another replica has already changed.
type Subscriber struct {
	pages  PageCache
	logger *slog.Logger
}

func NewSubscriber(pages PageCache, logger *slog.Logger) *Subscriber {
	return &Subscriber{pages: pages, logger: logger.With("component", "revalidate-subscriber")}
}

// Start creates the consumer on stream and runs cfg.Workers fetch loops until ctx is done.
func (s *Subscriber) Start(ctx context.Context, js jetstream.JetStream, stream string, cfg config.SubscriberConfig) error {
	consumer, err := js.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
		Durable:       cfg.Consumer,
		FilterSubject: events.SubjectPrefix + ">",
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Catalog event subscriber started", "stream", stream, "workers", cfg.Workers)

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Workers; i++ {
		g.Go(func() error {
			return s.runWorker(gCtx, consumer, cfg.Timeout, cfg.Interval)
		})
	}
	return g.Wait()
}

func (s *Subscriber) runWorker(ctx context.Context, consumer jetstream.Consumer, timeout, interval time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		batch, err := consumer.Fetch(1, jetstream.FetchMaxWait(timeout))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			s.logger.ErrorContext(ctx, "Failed to fetch catalog events", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
			continue
		}
		for msg := range batch.Messages() {
			s.handleMessage(ctx, msg)
		}
	}
}

// handleMessage terminates undecodable events and naks events whose pages could not all be dropped.
func (s *Subscriber) handleMessage(ctx context.Context, msg ackableMsg) {
	if msg == nil {
		s.logger.ErrorContext(ctx, "Received nil message")
		return
	}
	var event events.ProductChangedEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil || event.Path == "" {
		s.logger.ErrorContext(ctx, "Malformed catalog event", "subject", msg.Subject(), "error", err)
		if err := msg.Term(); err != nil {
			s.logger.ErrorContext(ctx, "Failed to terminate message", "error", err)
		}
		return
	}
	for _, pagePath := range event.Paths() {
		if err := s.pages.Invalidate(ctx, pagePath); err != nil {
			s.logger.WarnContext(ctx, "Failed to invalidate page from event", "path", pagePath, "error", err)
			if err := msg.Nak(); err != nil {
				s.logger.ErrorContext(ctx, "Failed to nak message", "error", err)
			}
			return
		}
	}
	s.logger.DebugContext(ctx, "Pages invalidated from event",
		"subject", msg.Subject(), "product_id", event.ProductID, "paths", event.Paths())
	if err := msg.Ack(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to ack message", "error", err)
	}
}
