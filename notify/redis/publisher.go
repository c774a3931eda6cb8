// Package redis forwards observer notifications to Redis.
//
// Publisher implements core.Emitter: every event is JSON encoded and
// published on the channel "<prefix><event>", e.g.
// "golem:observer:afterCreate". With WithStream the event is also appended
// to a stream, for consumers that must not miss notifications.
package redis

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/leandroluk/golem-observer/core"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "golem:"

// Publisher publishes events on Redis channels.
type Publisher struct {
	client       *backend.Client
	prefix       string
	stream       string
	streamMaxLen int64
}

var _ core.Emitter = (*Publisher)(nil)

// Option configures a Publisher.
type Option func(*Publisher)

// WithPrefix sets the channel prefix.
func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// WithStream also appends every event to the given stream, trimmed to
// about maxLen entries when maxLen is positive.
func WithStream(stream string, maxLen int64) Option {
	return func(p *Publisher) {
		p.stream = stream
		p.streamMaxLen = maxLen
	}
}

// New creates a Publisher connected to address.
func New(address, password string, db int, opts ...Option) *Publisher {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Publisher from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Channel returns the channel an event is published on.
func (p *Publisher) Channel(event string) string {
	return p.prefix + event
}

// Emit publishes the JSON encoding of payload.
func (p *Publisher) Emit(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "redis: encode %s", event)
	}
	if err := p.client.Publish(ctx, p.Channel(event), data).Err(); err != nil {
		return errors.Wrapf(err, "redis: publish %s", event)
	}
	if p.stream == "" {
		return nil
	}
	args := &backend.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"event": event, "payload": string(data)},
	}
	if p.streamMaxLen > 0 {
		args.MaxLen = p.streamMaxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return errors.Wrapf(err, "redis: append %s to %s", event, p.stream)
	}
	return nil
}

// Close closes the underlying client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
