package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"arena/internal/config"
	"arena/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sampleEvent() models.MatchStarting {
	return models.MatchStarting{
		MatchID:     42,
		GameName:    "Free Fire",
		MatchName:   "Night Squad",
		TimeKey:     "2026-03-01-18-30",
		AccountID:   "acc-1",
		Email:       "a@example.com",
		SessionID:   "chat-7",
		PublishedAt: time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC),
	}
}

type fakeRedis struct {
	channel string
	payload []byte
	err     error
	closed  bool
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisPublisher(t *testing.T) {
	client := &fakeRedis{}
	p := NewRedisPublisher(client, "arena.match_starting")

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.Equal(t, "arena.match_starting", client.channel)

	var got models.MatchStarting
	require.NoError(t, json.Unmarshal(client.payload, &got))
	assert.Equal(t, sampleEvent(), got)

	client.err = errors.New("connection refused")
	assert.ErrorContains(t, p.Publish(context.Background(), sampleEvent()), "connection refused")

	require.NoError(t, p.Close())
	assert.True(t, client.closed)
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisherKeysByMatch(t *testing.T) {
	writer := &fakeWriter{}
	p := NewKafkaPublisher(writer)

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, sampleEvent().PublishedAt, msg.Time)
	assert.Contains(t, string(msg.Value), `"session_id":"chat-7"`)

	writer.err = errors.New("leader not available")
	assert.Error(t, p.Publish(context.Background(), sampleEvent()))
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	event := sampleEvent()
	event.SessionID = ""
	require.NoError(t, p.Publish(context.Background(), event))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(42), fields["match_id"])
	assert.Equal(t, "", fields["session_id"])
}

func TestNewSelectsSink(t *testing.T) {
	p, err := New(context.Background(), config.Config{NotifySink: config.SinkLog}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogPublisher{}, p)

	p, err = New(context.Background(), config.Config{NotifySink: config.SinkKafka, KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &KafkaPublisher{}, p)
	require.NoError(t, p.Close())

	_, err = New(context.Background(), config.Config{NotifySink: "pigeon"}, zap.NewNop())
	assert.Error(t, err)
}
