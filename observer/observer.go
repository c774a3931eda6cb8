package observer

import (
	"context"
	"reflect"
	"strings"

	"github.com/leandroluk/golem-observer/core"
)

// Observer is an observer instance. Its capabilities are discovered through
// the interfaces it implements.
type Observer any

// Factory builds an observer instance.
type Factory func() Observer

// Method names an observer method, as used in notifications.
type Method string

// Observer methods, one per hook slot.
const (
	BeforeFind     Method = "beforeFind"
	AfterFind      Method = "afterFind"
	BeforeFetch    Method = "beforeFetch"
	AfterFetch     Method = "afterFetch"
	BeforeCreate   Method = "beforeCreate"
	AfterCreate    Method = "afterCreate"
	BeforeUpdate   Method = "beforeUpdate"
	AfterUpdate    Method = "afterUpdate"
	BeforeDelete   Method = "beforeDelete"
	AfterDelete    Method = "afterDelete"
	BeforeSave     Method = "beforeSave"
	AfterSave      Method = "afterSave"
	BeforePaginate Method = "beforePaginate"
	AfterPaginate  Method = "afterPaginate"
)

// MethodFor returns the method dispatched for a hook slot, e.g. before +
// create gives beforeCreate.
func MethodFor(phase core.Phase, event core.HookEvent) Method {
	name := string(event)
	if name == "" {
		return Method(phase)
	}
	return Method(string(phase) + strings.ToUpper(name[:1]) + name[1:])
}

// Capability interfaces. An observer implements the ones it cares about;
// the others are no-ops for it.
type (
	BeforeFinder interface {
		BeforeFind(ctx context.Context, query core.QueryBuilder) error
	}
	AfterFinder interface {
		AfterFind(ctx context.Context, row core.Row) error
	}
	BeforeFetcher interface {
		BeforeFetch(ctx context.Context, query core.QueryBuilder) error
	}
	AfterFetcher interface {
		AfterFetch(ctx context.Context, rows []core.Row) error
	}
	BeforeCreator interface {
		BeforeCreate(ctx context.Context, row core.Row) error
	}
	AfterCreator interface {
		AfterCreate(ctx context.Context, row core.Row) error
	}
	BeforeUpdater interface {
		BeforeUpdate(ctx context.Context, row core.Row) error
	}
	AfterUpdater interface {
		AfterUpdate(ctx context.Context, row core.Row) error
	}
	BeforeDeleter interface {
		BeforeDelete(ctx context.Context, row core.Row) error
	}
	AfterDeleter interface {
		AfterDelete(ctx context.Context, row core.Row) error
	}
	BeforeSaver interface {
		BeforeSave(ctx context.Context, row core.Row) error
	}
	AfterSaver interface {
		AfterSave(ctx context.Context, row core.Row) error
	}
	BeforePaginator interface {
		BeforePaginate(ctx context.Context, queries core.PaginateQueries) error
	}
	AfterPaginator interface {
		AfterPaginate(ctx context.Context, page core.Paginator) error
	}
)

// CommitDeferrer is implemented by observers whose methods must wait for
// the commit of the transaction the hook runs in.
type CommitDeferrer interface {
	DeferUntilCommit() bool
}

// UntilCommit can be embedded in an observer to defer its methods until commit.
type UntilCommit struct{}

// DeferUntilCommit returns true.
func (UntilCommit) DeferUntilCommit() bool { return true }

// deferred reports whether o asked to run after commit.
func deferred(o Observer) bool {
	d, ok := o.(CommitDeferrer)
	return ok && d.DeferUntilCommit()
}

// Name returns the name notifications use for an observer: its type name
// without package or pointer.
func Name(o Observer) string {
	t := reflect.TypeOf(o)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

// bind returns the call of method on o, or false when o does not implement it.
// The payload shape is fixed by the method.
func bind(o Observer, method Method, payload any) (func(ctx context.Context) error, bool) {
	switch method {
	case BeforeFind:
		if h, ok := o.(BeforeFinder); ok {
			q, _ := payload.(core.QueryBuilder)
			return func(ctx context.Context) error { return h.BeforeFind(ctx, q) }, true
		}
	case AfterFind:
		if h, ok := o.(AfterFinder); ok {
			row, _ := payload.(core.Row)
			return func(ctx context.Context) error { return h.AfterFind(ctx, row) }, true
		}
	case BeforeFetch:
		if h, ok := o.(BeforeFetcher); ok {
			q, _ := payload.(core.QueryBuilder)
			return func(ctx context.Context) error { return h.BeforeFetch(ctx, q) }, true
		}
	case AfterFetch:
		if h, ok := o.(AfterFetcher); ok {
			rows, _ := payload.([]core.Row)
			return func(ctx context.Context) error { return h.AfterFetch(ctx, rows) }, true
		}
	case BeforeCreate:
		if h, ok := o.(BeforeCreator); ok {
			row, _ := payload.(core.Row)
			return func(ctx context.Context) error { return h.BeforeCreate(ctx, row) }, true
		}
	case AfterCreate:
		if h, ok := o.(AfterCreator); ok {
			row, _ := payload.(core.Row)
			return func(ctx context.Context) error { return h.AfterCreate(ctx, row) }, true
		}
	case BeforeUpdate:
		if h, ok := o.(BeforeUpdater); ok {
			row, _ := payload.(core.Row)
			return func(ctx context.Context) error { return h.BeforeUpdate(ctx, row) }, true
		}
	case AfterUpdate:
		if h, ok := o.(AfterUpdater); ok {
			row, _ := payload.(core.Row)
			return func(ctx context.Context) error { return h.AfterUpdate(ctx, row) }, true
		}
	case BeforeDelete:
		if h, ok := o.(BeforeDeleter); ok {
			row, _ := payload.(core.Row)
			return func(ctx context.Context) error { return h.BeforeDelete(ctx, row) }, true
		}
	case AfterDelete:
		if h, ok := o.(AfterDeleter); ok {
			row, _ := payload.(core.Row)
			return func(ctx context.Context) error { return h.AfterDelete(ctx, row) }, true
		}
	case BeforeSave:
		if h, ok := o.(BeforeSaver); ok {
			row, _ := payload.(core.Row)
			return func(ctx context.Context) error { return h.BeforeSave(ctx, row) }, true
		}
	case AfterSave:
		if h, ok := o.(AfterSaver); ok {
			row, _ := payload.(core.Row)
			return func(ctx context.Context) error { return h.AfterSave(ctx, row) }, true
		}
	case BeforePaginate:
		if h, ok := o.(BeforePaginator); ok {
			queries, _ := payload.(core.PaginateQueries)
			return func(ctx context.Context) error { return h.BeforePaginate(ctx, queries) }, true
		}
	case AfterPaginate:
		if h, ok := o.(AfterPaginator); ok {
			page, _ := payload.(core.Paginator)
			return func(ctx context.Context) error { return h.AfterPaginate(ctx, page) }, true
		}
	}
	return nil, false
}
