// Package redis drives the voice-media server over a pub/sub channel. The
// coordination core only needs fire-and-forget publishes; command delivery
// and ordering beyond the channel are the media server's problem.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// voiceServerRequest is the envelope the media server consumes.
type voiceServerRequest struct {
	Op  string `json:"op"`
	D   any    `json:"d"`
	UID string `json:"uid"`
}

type publisher struct {
	rc      *redis.Client
	channel string
	logger  *slog.Logger
}

func NewPublisher(rc *redis.Client, channel string, logger *slog.Logger) *publisher {
	return &publisher{
		rc:      rc,
		channel: channel,
		logger:  logger,
	}
}

func (p *publisher) Publish(ctx context.Context, op string, data any, uid string) error {
	payload, err := json.Marshal(voiceServerRequest{
		Op:  op,
		D:   data,
		UID: uid,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal voice request: %w", err)
	}

	if err := p.rc.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish voice request: %w", err)
	}

	p.logger.DebugContext(ctx, "published voice request", "op", op, "uid", uid)
	return nil
}
