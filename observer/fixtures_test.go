package observer

import (
	"context"
	"testing"

	"github.com/leandroluk/golem-observer/core"
	"github.com/leandroluk/golem-observer/driver/memory"
)

type post struct {
	core.Base
	ID    int64  `db:"id"`
	Title string `db:"title"`
	Slug  string `db:"slug"`
}

type harness struct {
	model         *core.Model[post]
	driver        *memory.Driver
	observable    *Observable[post]
	events        *core.EventDispatcher
	notifications []Notification
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	ResetGlobalObservers()
	t.Cleanup(ResetGlobalObservers)

	schema := core.Schema[post](
		core.Table[post]("posts"),
		core.OverrideField(func(p *post) *int64 { return &p.ID }, core.PrimaryKey()),
	)
	h := &harness{driver: memory.New(), events: core.NewEventDispatcher()}
	h.model = core.NewModel(schema, h.driver)
	for _, phase := range core.Phases {
		for _, event := range core.HookEvents {
			h.events.On(EventName(MethodFor(phase, event)), func(ctx context.Context, payload any) error {
				h.notifications = append(h.notifications, payload.(Notification))
				return nil
			})
		}
	}
	h.observable = Of(h.model, append([]Option{WithEmitter(h.events)}, opts...)...)
	t.Cleanup(func() { Forget(h.model) })
	return h
}

// tracer records every method it receives as "method:id".
type tracer struct {
	id    string
	calls *[]string
}

func traced(id string, calls *[]string) Factory {
	return func() Observer { return &tracer{id: id, calls: calls} }
}

func (t *tracer) record(m Method) error {
	*t.calls = append(*t.calls, string(m)+":"+t.id)
	return nil
}

func (t *tracer) BeforeFind(ctx context.Context, q core.QueryBuilder) error {
	return t.record(BeforeFind)
}

func (t *tracer) AfterFind(ctx context.Context, row core.Row) error {
	return t.record(AfterFind)
}

func (t *tracer) BeforeFetch(ctx context.Context, q core.QueryBuilder) error {
	return t.record(BeforeFetch)
}

func (t *tracer) AfterFetch(ctx context.Context, rows []core.Row) error {
	return t.record(AfterFetch)
}

func (t *tracer) BeforeCreate(ctx context.Context, row core.Row) error {
	return t.record(BeforeCreate)
}

func (t *tracer) AfterCreate(ctx context.Context, row core.Row) error {
	return t.record(AfterCreate)
}

func (t *tracer) BeforeUpdate(ctx context.Context, row core.Row) error {
	return t.record(BeforeUpdate)
}

func (t *tracer) AfterUpdate(ctx context.Context, row core.Row) error {
	return t.record(AfterUpdate)
}

func (t *tracer) BeforeDelete(ctx context.Context, row core.Row) error {
	return t.record(BeforeDelete)
}

func (t *tracer) AfterDelete(ctx context.Context, row core.Row) error {
	return t.record(AfterDelete)
}

func (t *tracer) BeforeSave(ctx context.Context, row core.Row) error {
	return t.record(BeforeSave)
}

func (t *tracer) AfterSave(ctx context.Context, row core.Row) error {
	return t.record(AfterSave)
}

func (t *tracer) BeforePaginate(ctx context.Context, q core.PaginateQueries) error {
	return t.record(BeforePaginate)
}

func (t *tracer) AfterPaginate(ctx context.Context, p core.Paginator) error {
	return t.record(AfterPaginate)
}

// deferredTracer is a tracer waiting for commits.
type deferredTracer struct {
	UntilCommit
	tracer
}

func tracedUntilCommit(id string, calls *[]string) Factory {
	return func() Observer { return &deferredTracer{tracer: tracer{id: id, calls: calls}} }
}

type slugObserver struct{}

func (slugObserver) BeforeCreate(ctx context.Context, row core.Row) error {
	p := row.(*post)
	p.Slug = "slug-" + p.Title
	return nil
}

func newSlugObserver() Observer { return slugObserver{} }

type named struct{ id string }

func namedFactory(id string) Factory {
	return func() Observer { return named{id: id} }
}
