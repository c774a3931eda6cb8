package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooks_ExecRunsSlotInRegistrationOrder(t *testing.T) {
	hooks := NewHooks()
	var calls []string
	hooks.Before(HookCreate, func(ctx context.Context, payload any) error {
		calls = append(calls, "first")
		return nil
	})
	hooks.Before(HookCreate, func(ctx context.Context, payload any) error {
		calls = append(calls, "second")
		return nil
	})
	hooks.After(HookCreate, func(ctx context.Context, payload any) error {
		calls = append(calls, "after")
		return nil
	})

	require.NoError(t, hooks.exec(context.Background(), PhaseBefore, HookCreate, nil))
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, 2, hooks.Len(PhaseBefore, HookCreate))
	assert.Equal(t, 1, hooks.Len(PhaseAfter, HookCreate))
	assert.Equal(t, 0, hooks.Len(PhaseBefore, HookDelete))
}

func TestHooks_ExecStopsAtFirstError(t *testing.T) {
	hooks := NewHooks()
	boom := errors.New("boom")
	called := false
	hooks.After(HookFetch, func(ctx context.Context, payload any) error { return boom })
	hooks.After(HookFetch, func(ctx context.Context, payload any) error {
		called = true
		return nil
	})

	err := hooks.exec(context.Background(), PhaseAfter, HookFetch, []Row{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestHooks_EverySlotIsAddressable(t *testing.T) {
	hooks := NewHooks()
	for _, phase := range Phases {
		for _, event := range HookEvents {
			if phase == PhaseBefore {
				hooks.Before(event, func(ctx context.Context, payload any) error { return nil })
			} else {
				hooks.After(event, func(ctx context.Context, payload any) error { return nil })
			}
		}
	}
	total := 0
	for _, phase := range Phases {
		for _, event := range HookEvents {
			total += hooks.Len(phase, event)
		}
	}
	assert.Equal(t, 14, total)
}
