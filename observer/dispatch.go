package observer

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/leandroluk/golem-observer/core"
	"go.uber.org/zap"
)

// dispatch runs method on every observer implementing it, globals first.
// The first error stops the chain.
func (o *Observable[T]) dispatch(ctx context.Context, phase core.Phase, event core.HookEvent, payload any) error {
	method := MethodFor(phase, event)
	for _, observer := range o.AllObservers() {
		call, ok := bind(observer, method, payload)
		if !ok {
			continue
		}
		if err := o.execute(ctx, observer, method, payload, call); err != nil {
			return err
		}
	}
	return nil
}

// execute runs call now, or schedules it after the commit of the payload's
// transaction when the observer defers until commit.
func (o *Observable[T]) execute(ctx context.Context, observer Observer, method Method, payload any, call func(context.Context) error) error {
	name := Name(observer)
	if deferred(observer) {
		if tx := transactionOf(method, payload); tx != nil && !tx.IsDone() {
			o.logger.Debug("observer deferred until commit",
				zap.String("model", o.name),
				zap.String("observer", name),
				zap.String("method", string(method)),
				zap.String("tx", tx.ID()),
			)
			o.metrics.deferral(o.name, method)
			tx.After(core.TxCommit, func(ctx context.Context) error {
				return o.run(ctx, name, method, payload, call, true)
			})
			return nil
		}
	}
	return o.run(ctx, name, method, payload, call, false)
}

// run calls the observer method and announces it.
func (o *Observable[T]) run(ctx context.Context, name string, method Method, payload any, call func(context.Context) error, transactional bool) error {
	start := time.Now()
	err := call(ctx)
	o.metrics.execution(o.name, method, transactional, time.Since(start), err)
	if err != nil {
		o.logger.Error("observer failed",
			zap.String("model", o.name),
			zap.String("observer", name),
			zap.String("method", string(method)),
			zap.Bool("transaction", transactional),
			zap.Error(err),
		)
		return errors.Wrapf(err, "observer %s: %s on %s", name, method, o.name)
	}

	if o.emitter == nil {
		return nil
	}
	notification := Notification{
		Type:          method,
		Data:          payload,
		Observer:      name,
		IsTransaction: transactional,
	}
	if err := o.emitter.Emit(ctx, EventName(method), notification); err != nil {
		return errors.Wrapf(err, "observer %s: emit %s", name, EventName(method))
	}
	return nil
}

// transactionOf locates the transaction carried by a hook payload. Where to
// look depends on the method only.
func transactionOf(method Method, payload any) *core.Tx {
	switch method {
	case BeforeFind, BeforeFetch:
		q, ok := payload.(core.QueryBuilder)
		if !ok || q == nil {
			return nil
		}
		return transactionClient(q.Client())
	case BeforePaginate:
		queries, ok := payload.(core.PaginateQueries)
		if !ok || queries.Count == nil {
			return nil
		}
		return transactionClient(queries.Count.Client())
	case AfterFetch:
		rows, ok := payload.([]core.Row)
		if !ok || len(rows) == 0 || rows[0] == nil {
			return nil
		}
		return rows[0].Transaction()
	case AfterPaginate:
		return nil
	}
	row, ok := payload.(core.Row)
	if !ok || row == nil {
		return nil
	}
	return row.Transaction()
}

func transactionClient(client core.Client) *core.Tx {
	if client == nil || !client.IsTransaction() {
		return nil
	}
	tx, _ := client.(*core.Tx)
	return tx
}
