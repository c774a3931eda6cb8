package observer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leandroluk/golem-observer/core"
	"github.com/leandroluk/golem-observer/driver/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

func count(calls []string, call string) int {
	n := 0
	for _, c := range calls {
		if c == call {
			n++
		}
	}
	return n
}

func TestDeferUntilCommit_Rollback(t *testing.T) {
	h := newHarness(t)
	var calls []string
	require.NoError(t, h.observable.Observe(tracedUntilCommit("d", &calls)))
	boom := errors.New("boom")

	err := core.RunTransaction(context.Background(), h.driver, func(txCtx context.Context) error {
		p := &post{ID: 1}
		require.NoError(t, h.model.Create(txCtx, p))
		p.Title = "edited"
		require.NoError(t, h.model.Save(txCtx, p))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, calls)
	assert.Empty(t, h.notifications)
	assert.Empty(t, h.driver.Rows(&h.model.Schema().SchemaCore))
}

func TestDeferUntilCommit_Commit(t *testing.T) {
	h := newHarness(t)
	var calls []string
	require.NoError(t, h.observable.Observe(tracedUntilCommit("d", &calls)))

	err := core.RunTransaction(context.Background(), h.driver, func(txCtx context.Context) error {
		p := &post{ID: 1}
		if err := h.model.Create(txCtx, p); err != nil {
			return err
		}
		p.Title = "edited"
		if err := h.model.Save(txCtx, p); err != nil {
			return err
		}
		assert.Empty(t, calls)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, count(calls, "afterUpdate:d"))
	assert.Equal(t, []string{
		"beforeCreate:d", "beforeSave:d", "afterCreate:d", "afterSave:d",
		"beforeUpdate:d", "beforeSave:d", "afterUpdate:d", "afterSave:d",
	}, calls)
	require.Len(t, h.notifications, len(calls))
	for _, n := range h.notifications {
		assert.True(t, n.IsTransaction, "%s", n.Type)
		assert.Equal(t, "deferredTracer", n.Observer)
	}
}

func TestDeferUntilCommit_MixedWithImmediate(t *testing.T) {
	h := newHarness(t)
	var calls []string
	require.NoError(t, h.observable.Observe(
		tracedUntilCommit("d", &calls),
		traced("now", &calls),
	))

	err := core.RunTransaction(context.Background(), h.driver, func(txCtx context.Context) error {
		if err := h.model.Create(txCtx, &post{ID: 1}); err != nil {
			return err
		}
		assert.Equal(t, []string{"beforeCreate:now", "beforeSave:now", "afterCreate:now", "afterSave:now"}, calls)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, calls, 8)
	assert.Equal(t, "beforeCreate:d", calls[4])
}

func TestDeferUntilCommit_WithoutTransactionRunsNow(t *testing.T) {
	h := newHarness(t)
	var calls []string
	require.NoError(t, h.observable.Observe(tracedUntilCommit("d", &calls)))

	require.NoError(t, h.model.Create(context.Background(), &post{ID: 1}))
	assert.Len(t, calls, 4)
	for _, n := range h.notifications {
		assert.False(t, n.IsTransaction)
	}
}

func TestDeferUntilCommit_PaginateAndEmptyFetch(t *testing.T) {
	h := newHarness(t)
	var calls []string
	require.NoError(t, h.observable.Observe(tracedUntilCommit("d", &calls)))

	err := core.RunTransaction(context.Background(), h.driver, func(txCtx context.Context) error {
		if _, err := h.model.Paginate(txCtx, nil, 1, 5); err != nil {
			return err
		}
		if _, err := h.model.FindMany(txCtx, nil); err != nil {
			return err
		}
		// after paginate never has a transaction; an empty fetch has none to find.
		assert.Equal(t, []string{"afterPaginate:d", "afterFetch:d"}, calls)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"afterPaginate:d", "afterFetch:d", "beforePaginate:d", "beforeFetch:d"}, calls)

	byType := map[Method]bool{}
	for _, n := range h.notifications {
		byType[n.Type] = n.IsTransaction
	}
	assert.False(t, byType[AfterPaginate])
	assert.False(t, byType[AfterFetch])
	assert.True(t, byType[BeforePaginate])
	assert.True(t, byType[BeforeFetch])
}

type commitFailure struct {
	UntilCommit
	err error
}

func (c commitFailure) AfterCreate(ctx context.Context, row core.Row) error { return c.err }

func TestDeferUntilCommit_ErrorReportedByCommit(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("boom")
	require.NoError(t, h.observable.Observe(func() Observer { return commitFailure{err: boom} }))

	err := core.RunTransaction(context.Background(), h.driver, func(txCtx context.Context) error {
		return h.model.Create(txCtx, &post{ID: 1})
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, h.driver.Rows(&h.model.Schema().SchemaCore), 1)
}

func TestNotifications(t *testing.T) {
	h := newHarness(t)
	var calls []string
	require.NoError(t, h.observable.Observe(traced("l", &calls)))

	p := &post{ID: 1}
	require.NoError(t, h.model.Create(context.Background(), p))

	require.Len(t, h.notifications, 4)
	first := h.notifications[0]
	assert.Equal(t, BeforeCreate, first.Type)
	assert.Equal(t, "tracer", first.Observer)
	assert.False(t, first.IsTransaction)
	assert.Same(t, p, first.Data)

	_, err := h.model.Paginate(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	last := h.notifications[len(h.notifications)-1]
	assert.Equal(t, AfterPaginate, last.Type)
	page, ok := last.Data.(*core.Page[post])
	require.True(t, ok)
	assert.Equal(t, int64(1), page.Total)
}

type failingEmitter struct{ err error }

func (f failingEmitter) Emit(ctx context.Context, event string, payload any) error { return f.err }

func TestNotifications_EmitterFailureAndDisabled(t *testing.T) {
	t.Run("failure", func(t *testing.T) {
		boom := errors.New("emit down")
		h := newHarness(t, WithEmitter(failingEmitter{err: boom}))
		var calls []string
		require.NoError(t, h.observable.Observe(traced("l", &calls)))

		err := h.model.Create(context.Background(), &post{ID: 1})
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "observer:beforeCreate")
	})

	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t, WithEmitter(nil))
		var calls []string
		require.NoError(t, h.observable.Observe(traced("l", &calls)))

		require.NoError(t, h.model.Create(context.Background(), &post{ID: 1}))
		assert.Len(t, calls, 4)
		assert.Empty(t, h.notifications)
	})
}

func TestMetrics(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	h := newHarness(t, WithMetrics(metrics))
	var calls []string
	require.NoError(t, h.observable.Observe(tracedUntilCommit("d", &calls)))

	require.NoError(t, h.model.Create(context.Background(), &post{ID: 1}))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.executions.WithLabelValues("post", "beforeCreate", "immediate")))

	err := core.RunTransaction(context.Background(), h.driver, func(txCtx context.Context) error {
		return h.model.Create(txCtx, &post{ID: 2})
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.deferrals.WithLabelValues("post", "afterCreate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.executions.WithLabelValues("post", "afterCreate", "deferred")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.failures.WithLabelValues("post", "afterCreate")))
}

func TestLogging(t *testing.T) {
	logCore, logs := zapobserver.New(zapcore.DebugLevel)
	h := newHarness(t, WithLogger(zap.New(logCore)))
	boom := errors.New("boom")
	require.NoError(t, h.observable.Observe(func() Observer { return failingObserver{err: boom} }))

	assert.Equal(t, 1, logs.FilterMessage("model observed").Len())
	require.Error(t, h.model.Create(context.Background(), &post{ID: 1}))

	failed := logs.FilterMessage("observer failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
	fields := failed[0].ContextMap()
	assert.Equal(t, "failingObserver", fields["observer"])
	assert.Equal(t, "beforeSave", fields["method"])
	assert.Equal(t, "post", fields["model"])
}

type fakeQuery struct{ client core.Client }

func (f fakeQuery) Collection() string {
	return "posts"
}

func (f fakeQuery) Client() core.Client {
	return f.client
}

func (f fakeQuery) AndWhere(condition *core.Condition) {}

func (f fakeQuery) Options() *core.Where {
	return &core.Where{}
}

func TestTransactionOf(t *testing.T) {
	ctx := context.Background()
	tx, err := core.Begin(ctx, memory.New())
	require.NoError(t, err)

	bound := &post{}
	bound.UseTransaction(tx)
	free := &post{}

	cases := []struct {
		name    string
		method  Method
		payload any
		want    *core.Tx
	}{
		{"find on tx query", BeforeFind, fakeQuery{client: tx}, tx},
		{"fetch on unbound query", BeforeFetch, fakeQuery{}, nil},
		{"paginate uses the count query", BeforePaginate, core.PaginateQueries{Count: fakeQuery{client: tx}, Query: fakeQuery{}}, tx},
		{"paginate without count", BeforePaginate, core.PaginateQueries{}, nil},
		{"fetch rows", AfterFetch, []core.Row{bound, free}, tx},
		{"empty fetch", AfterFetch, []core.Row{}, nil},
		{"after paginate", AfterPaginate, &core.Page[post]{Items: []*post{bound}}, nil},
		{"bound row", AfterUpdate, bound, tx},
		{"free row", BeforeSave, free, nil},
		{"wrong payload", AfterDelete, "not a row", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, transactionOf(tc.method, tc.payload))
		})
	}
}

func TestTransactionOf_FinishedTransactionRunsNow(t *testing.T) {
	h := newHarness(t)
	var calls []string
	require.NoError(t, h.observable.Observe(tracedUntilCommit("d", &calls)))
	ctx := context.Background()

	tx, err := core.Begin(ctx, h.driver)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	require.NoError(t, h.observable.dispatch(ctx, core.PhaseBefore, core.HookFind, fakeQuery{client: tx}))
	assert.Equal(t, []string{"beforeFind:d"}, calls)
	require.Len(t, h.notifications, 1)
	assert.False(t, h.notifications[0].IsTransaction)
}

func TestRowReleasedAfterCommit(t *testing.T) {
	h := newHarness(t)
	p := &post{ID: 1}
	err := core.RunTransaction(context.Background(), h.driver, func(txCtx context.Context) error {
		if err := h.model.Create(txCtx, p); err != nil {
			return err
		}
		assert.NotNil(t, p.Transaction())
		return nil
	})
	require.NoError(t, err)
	assert.Nil(t, p.Transaction())
	assert.True(t, strings.HasPrefix(EventName(AfterCreate), EventPrefix))
}
