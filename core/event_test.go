package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDispatcher_EmitInOrder(t *testing.T) {
	d := NewEventDispatcher()
	var got []any
	d.On("observer:afterCreate", func(ctx context.Context, payload any) error {
		got = append(got, payload)
		return nil
	})
	d.On("observer:afterCreate", func(ctx context.Context, payload any) error {
		got = append(got, "second")
		return nil
	})

	require.NoError(t, d.Emit(context.Background(), "observer:afterCreate", 1))
	require.NoError(t, d.Emit(context.Background(), "observer:afterUpdate", 2))
	assert.Equal(t, []any{1, "second"}, got)
}

func TestEventDispatcher_EmitStopsAtFirstError(t *testing.T) {
	d := NewEventDispatcher()
	boom := errors.New("boom")
	called := false
	d.On("e", func(ctx context.Context, payload any) error { return boom })
	d.On("e", func(ctx context.Context, payload any) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, d.Emit(context.Background(), "e", nil), boom)
	assert.False(t, called)
}

func TestMultiEmitter(t *testing.T) {
	first, second := NewEventDispatcher(), NewEventDispatcher()
	var calls []string
	first.On("e", func(ctx context.Context, payload any) error {
		calls = append(calls, "first")
		return nil
	})
	second.On("e", func(ctx context.Context, payload any) error {
		calls = append(calls, "second")
		return nil
	})

	m := NewMultiEmitter(first, nil, second)
	require.NoError(t, m.Emit(context.Background(), "e", nil))
	assert.Equal(t, []string{"first", "second"}, calls)
}
