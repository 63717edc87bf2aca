// Package notify delivers match-starting events to whatever front-end is
// listening. The sink is chosen at startup.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"arena/internal/config"
	"arena/internal/models"

	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, event models.MatchStarting) error
	Close() error
}

// New builds the publisher named by cfg.NotifySink.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (Publisher, error) {
	switch cfg.NotifySink {
	case config.SinkRedis:
		client, err := ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisPublisher(client, cfg.NotifyChannel), nil
	case config.SinkKafka:
		return NewKafkaPublisher(NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)), nil
	case config.SinkLog, "":
		return NewLogPublisher(logger), nil
	}
	return nil, fmt.Errorf("unknown notify sink %q", cfg.NotifySink)
}

func encode(event models.MatchStarting) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode match starting: %w", err)
	}
	return payload, nil
}

type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event models.MatchStarting) error {
	p.logger.Info("match starting",
		zap.Int64("match_id", event.MatchID),
		zap.String("time_key", event.TimeKey),
		zap.String("account_id", event.AccountID),
		zap.String("session_id", event.SessionID),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
