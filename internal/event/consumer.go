// Package event consumes product catalog events and turns them into cache
// invalidation sweeps.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shoplite/catalog-search/internal/domain"
	"github.com/shoplite/catalog-search/pkg/kafka"
)

// Event types emitted by the product service.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// productPayload is the slice of the product event body the search cache
// cares about.
type productPayload struct {
	ID              string `json:"id"`
	Featured        bool   `json:"featured"`
	SalesCount      int    `json:"sales_count"`
	StatusChanged   bool   `json:"status_changed"`
	CategoryChanged bool   `json:"category_changed"`
}

// Invalidator receives the invalidation hints derived from an event.
type Invalidator interface {
	InvalidateCatalog(ctx context.Context, hints domain.InvalidationHints)
}

// Config holds the consumer group settings.
type Config struct {
	Brokers         []string
	GroupID         string
	BestSellerSales int
}

// Consumer subscribes to the product topics and maps each event to a cache
// invalidation.
type Consumer struct {
	consumers   []*kafka.Consumer
	invalidator Invalidator
	logger      *slog.Logger
	threshold   int
}

// NewConsumer builds one group consumer per product topic.
func NewConsumer(cfg Config, invalidator Invalidator, logger *slog.Logger) *Consumer {
	c := &Consumer{
		invalidator: invalidator,
		logger:      logger,
		threshold:   cfg.BestSellerSales,
	}

	for _, action := range []string{"created", "updated", "deleted"} {
		consumerCfg := kafka.ConsumerConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    kafka.Topic("product", action),
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}
		c.consumers = append(c.consumers, kafka.NewConsumer(consumerCfg, c.handle, logger))
	}

	return c
}

// Start runs all topic consumers until the context is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(c.consumers))

	for _, consumer := range c.consumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// Close stops all topic consumers.
func (c *Consumer) Close() error {
	var firstErr error
	for _, consumer := range c.consumers {
		if err := consumer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// handle maps one product event onto a cache invalidation.
func (c *Consumer) handle(ctx context.Context, event *kafka.Event) error {
	var payload productPayload
	if err := event.UnmarshalData(&payload); err != nil {
		return fmt.Errorf("unmarshal product payload: %w", err)
	}
	if payload.ID == "" {
		payload.ID = event.AggregateID
	}

	hints := c.hintsFor(event.EventType, payload)

	c.logger.Info("catalog change received",
		slog.String("event_type", event.EventType),
		slog.String("product_id", payload.ID),
		slog.Bool("featured", hints.Featured),
		slog.Bool("high_seller", hints.HighSeller),
	)

	c.invalidator.InvalidateCatalog(ctx, hints)
	return nil
}

// hintsFor derives which aggregates an event implicates. Creations and
// deletions change the visible product set, so they count as status
// changes; updates rely on the change markers the producer sets.
func (c *Consumer) hintsFor(eventType string, p productPayload) domain.InvalidationHints {
	hints := domain.InvalidationHints{
		ProductID:  p.ID,
		Featured:   p.Featured,
		HighSeller: p.SalesCount >= c.threshold,
	}

	switch eventType {
	case EventProductCreated, EventProductDeleted:
		hints.StatusChanged = true
	case EventProductUpdated:
		hints.StatusChanged = p.StatusChanged
		hints.CategoryChange = p.CategoryChanged
	}

	return hints
}
