package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the Redis list drained by the external mailer.
const DefaultQueueKey = "postboard:outbound-email"

// Sender delivers a rendered Email somewhere it will eventually be mailed.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// RedisSender appends the JSON-encoded email to a Redis list.
type RedisSender struct {
	client redis.Cmdable
	key    string
}

// NewRedisSender pushes onto the list at key, or DefaultQueueKey when key is empty.
func NewRedisSender(client redis.Cmdable, key string) *RedisSender {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisSender{client: client, key: key}
}

func (s *RedisSender) Send(ctx context.Context, email Email) error {
	data, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", s.key, err)
	}
	return nil
}

// LogSender only logs what would have been sent. Used when no queue is
// configured.
type LogSender struct {
	log logging.Logger
}

// NewLogSender returns a Sender that only logs.
func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, email Email) error {
	s.log.Info(ctx, "notification not queued, no mail transport configured",
		"to", email.To, "template", email.Template, "subject", email.Subject)
	return nil
}
