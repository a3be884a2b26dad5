// Package events publishes match notifications to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/logger"
	"github.com/spigell/smartmatch/internal/utils"
)

const (
	DefaultExchange = "smartmatch"
	RoutingKeyMatch = "match.created"
	dialAttempts    = 3
	dialRetryStep   = time.Second
	contentTypeJSON = "application/json"
)

// MatchEvent is emitted after a match result is persisted.
type MatchEvent struct {
	MatchID     int64     `json:"match_id"`
	CandidateID int64     `json:"candidate_id"`
	JobID       int64     `json:"job_id"`
	Score       float64   `json:"score"`
	Gaps        []string  `json:"gaps"`
	CreatedAt   time.Time `json:"created_at"`
}

// Publisher sends events. Implementations are safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event MatchEvent) error
	Close() error
}

// Config describes the broker connection. An empty URL disables publishing.
type Config struct {
	URL      string
	Exchange string
}

type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publishes events to a topic exchange.
type AMQP struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	log      *zap.Logger
}

// Dial connects to the broker and declares the exchange. Without a URL it
// returns a publisher that drops events.
func Dial(ctx context.Context, cfg Config, log *zap.Logger) (Publisher, error) {
	log = logger.Component(log, "events")
	if cfg.URL == "" {
		log.Debug("event publishing disabled")
		return Nop{}, nil
	}

	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}

	var conn *amqp.Connection
	err := utils.Retry(ctx, dialAttempts, dialRetryStep, func(context.Context) error {
		var err error
		conn, err = amqp.Dial(cfg.URL)
		if err != nil {
			log.Warn("broker is not reachable yet", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	log.Info("event publishing enabled", zap.String("exchange", exchange))
	return &AMQP{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

func (p *AMQP) Publish(ctx context.Context, event MatchEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(p.exchange, RoutingKeyMatch, false, false, amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", RoutingKeyMatch, err)
	}

	p.log.Debug("event published", logger.MatchFields(event.CandidateID, event.JobID, event.Score)...)
	return nil
}

func (p *AMQP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		return fmt.Errorf("closing channel: %w", err)
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Nop drops events.
type Nop struct{}

func (Nop) Publish(context.Context, MatchEvent) error { return nil }

func (Nop) Close() error { return nil }
