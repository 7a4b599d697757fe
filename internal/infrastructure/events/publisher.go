package events

import (
	"context"
	"encoding/json"
	"fmt"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/ports"
	"streamledger/pkg/circuitbreaker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishChannel = "streamledger:events"

// Publisher appends to the local log and fans events out to Redis pub/sub
// for off-host consumers. The local log is the source of truth; Redis
// publishing is best-effort behind a circuit breaker so a broker outage
// cannot abort the emitting transaction.
type Publisher struct {
	log     *Log
	client  *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

func NewPublisher(log *Log, client *redis.Client, logger *zap.SugaredLogger) *Publisher {
	return &Publisher{
		log:     log,
		client:  client,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
		logger:  logger,
	}
}

func (p *Publisher) Append(ctx context.Context, event *domain.Event) error {
	if err := p.log.Append(ctx, event); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.breaker.Execute(ctx, func() error {
		return p.client.Publish(ctx, publishChannel, data).Err()
	})
	if err != nil {
		p.logger.Warnw("event fan-out skipped",
			"type", event.Type,
			"stream_id", event.StreamID,
			"error", err,
		)
		return nil
	}

	p.logger.Debugw("published event",
		"type", event.Type,
		"stream_id", event.StreamID,
	)
	return nil
}

var _ ports.EventLog = (*Publisher)(nil)
