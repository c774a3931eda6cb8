package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leandroluk/golem-observer/notify/redis"
	"github.com/leandroluk/golem-observer/observer"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type article struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func setup(t *testing.T) *backend.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPublisher_Channel(t *testing.T) {
	client := setup(t)

	assert.Equal(t, "golem:observer:afterCreate", redis.NewFromClient(client).Channel("observer:afterCreate"))
	assert.Equal(t, "app.observer:afterCreate", redis.NewFromClient(client, redis.WithPrefix("app.")).Channel("observer:afterCreate"))
}

func TestPublisher_Emit(t *testing.T) {
	client := setup(t)
	ctx := context.Background()
	publisher := redis.NewFromClient(client)

	event := observer.EventName(observer.AfterCreate)
	sub := client.Subscribe(ctx, publisher.Channel(event))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	notification := observer.Notification{
		Type:     observer.AfterCreate,
		Data:     article{ID: 7, Title: "hello"},
		Observer: "auditObserver",
	}
	require.NoError(t, publisher.Emit(ctx, event, notification))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "golem:observer:afterCreate", msg.Channel)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "afterCreate", got["type"])
		assert.Equal(t, "auditObserver", got["observer"])
		assert.Equal(t, false, got["isTransaction"])
		assert.Equal(t, map[string]any{"id": float64(7), "title": "hello"}, got["data"])
	case <-time.After(2 * time.Second):
		t.Fatal("notification not received")
	}
}

func TestPublisher_Stream(t *testing.T) {
	client := setup(t)
	ctx := context.Background()
	publisher := redis.NewFromClient(client, redis.WithStream("golem:observer", 0))

	require.NoError(t, publisher.Emit(ctx, "observer:beforeSave", observer.Notification{Type: observer.BeforeSave}))
	require.NoError(t, publisher.Emit(ctx, "observer:afterSave", observer.Notification{Type: observer.AfterSave, IsTransaction: true}))

	entries, err := client.XRange(ctx, "golem:observer", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "observer:beforeSave", entries[0].Values["event"])
	assert.Equal(t, "observer:afterSave", entries[1].Values["event"])
	assert.JSONEq(t,
		`{"type":"afterSave","data":null,"observer":"","isTransaction":true}`,
		entries[1].Values["payload"].(string),
	)
}

func TestPublisher_Errors(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	ctx := context.Background()
	publisher := redis.New(mr.Addr(), "", 0)
	defer publisher.Close()

	err = publisher.Emit(ctx, "observer:afterFind", func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode observer:afterFind")

	mr.Close()
	err = publisher.Emit(ctx, "observer:afterFind", observer.Notification{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish observer:afterFind")
}
