// Package core provides the fundamental building blocks of the golem ORM.
// This file defines transaction management utilities: the Tx handle with its
// commit/rollback callbacks, helpers for injecting transactions into context
// and executing ergonomic callbacks.
package core

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ErrTxDone is returned when Commit or Rollback is called on a transaction
// that has already been committed or rolled back.
var ErrTxDone = errors.New("core: transaction has already been committed or rolled back")

// TxEvent identifies the end of a transaction a callback can be attached to.
type TxEvent string

const (
	// TxCommit callbacks run after the driver committed the transaction.
	TxCommit TxEvent = "commit"
	// TxRollback callbacks run after the driver rolled the transaction back.
	TxRollback TxEvent = "rollback"
)

// TxCallback is the signature of callbacks registered with Tx.After.
type TxCallback func(ctx context.Context) error

type txState int

const (
	txOpen txState = iota
	txCommitted
	txRolledBack
)

// Tx is the ORM-level transaction handle.
//
// It wraps the driver Transaction and keeps the callbacks that must run once
// the transaction is finished. Tx is the transaction client rows and queries
// reference while they are used inside a transaction.
type Tx struct {
	id       string
	driverTx Transaction

	mutex        sync.Mutex
	state        txState
	callbackList map[TxEvent][]TxCallback
}

// NewTx wraps a driver transaction into a Tx.
func NewTx(driverTx Transaction) *Tx {
	return &Tx{
		id:           uuid.NewString(),
		driverTx:     driverTx,
		callbackList: make(map[TxEvent][]TxCallback),
	}
}

// Begin starts a driver transaction and wraps it.
func Begin(ctx context.Context, driver Driver) (*Tx, error) {
	driverTx, err := driver.Transaction(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "core: begin transaction")
	}
	return NewTx(driverTx), nil
}

// ID returns the unique identifier of the transaction, used in logs.
func (tx *Tx) ID() string { return tx.id }

// IsTransaction reports true: a Tx is always a transaction client.
func (tx *Tx) IsTransaction() bool { return true }

// Unwrap returns the driver transaction.
func (tx *Tx) Unwrap() Transaction { return tx.driverTx }

// IsDone reports whether the transaction was committed or rolled back.
func (tx *Tx) IsDone() bool {
	tx.mutex.Lock()
	defer tx.mutex.Unlock()
	return tx.state != txOpen
}

// After registers fn to run once the transaction reaches the given end.
//
// Callbacks run sequentially in registration order. Callbacks registered on
// a finished transaction are dropped.
func (tx *Tx) After(event TxEvent, fn TxCallback) {
	tx.mutex.Lock()
	defer tx.mutex.Unlock()
	if tx.state != txOpen {
		return
	}
	tx.callbackList[event] = append(tx.callbackList[event], fn)
}

// Commit commits the driver transaction and then runs the commit callbacks.
//
// Every callback runs even if a previous one failed; their errors are
// combined into the returned error. The data is committed in that case.
func (tx *Tx) Commit(ctx context.Context) error {
	callbacks, err := tx.finish(ctx, txCommitted)
	if err != nil {
		return err
	}
	return runTxCallbacks(ctx, callbacks)
}

// Rollback rolls the driver transaction back and runs the rollback callbacks.
// Commit callbacks are discarded.
func (tx *Tx) Rollback(ctx context.Context) error {
	callbacks, err := tx.finish(ctx, txRolledBack)
	if err != nil {
		return err
	}
	return runTxCallbacks(ctx, callbacks)
}

func (tx *Tx) finish(ctx context.Context, state txState) ([]TxCallback, error) {
	tx.mutex.Lock()
	defer tx.mutex.Unlock()
	if tx.state != txOpen {
		return nil, ErrTxDone
	}

	event := TxCommit
	if state == txCommitted {
		if err := tx.driverTx.Commit(ctx); err != nil {
			return nil, errors.Wrap(err, "core: commit transaction")
		}
	} else {
		event = TxRollback
		if err := tx.driverTx.Rollback(ctx); err != nil {
			return nil, errors.Wrap(err, "core: rollback transaction")
		}
	}

	tx.state = state
	callbacks := tx.callbackList[event]
	tx.callbackList = nil
	return callbacks, nil
}

func runTxCallbacks(ctx context.Context, callbacks []TxCallback) error {
	var combined error
	for _, fn := range callbacks {
		if err := fn(ctx); err != nil {
			combined = errors.CombineErrors(combined, err)
		}
	}
	return combined
}

// transactionKey is an unexported type used as the key for storing
// a Tx in a context.Context. Using a private type prevents
// collisions with other context values.
type transactionKey struct{}

// WithTransaction injects a Tx into the given context.
//
// This allows database operations to detect and reuse an ongoing
// transaction automatically.
//
// Example:
//
//	tx, _ := core.Begin(ctx, driver)
//	txCtx := core.WithTransaction(ctx, tx)
//	userModel.Create(txCtx, &user)
func WithTransaction(ctx context.Context, tx *Tx) context.Context {
	return context.WithValue(ctx, transactionKey{}, tx)
}

// TransactionFrom extracts a Tx from the given context, if any.
//
// Returns nil if the context does not contain a transaction.
func TransactionFrom(ctx context.Context) *Tx {
	if v, ok := ctx.Value(transactionKey{}).(*Tx); ok {
		return v
	}
	return nil
}

// TransactionFunc is the callback signature used for ergonomic transactions.
//
// If the function returns an error, the transaction is rolled back.
// If it returns nil, the transaction is committed.
type TransactionFunc func(txCtx context.Context) error

// RunTransaction executes a function inside a transaction, handling commit
// and rollback automatically.
//
// If fn returns an error, the transaction is rolled back and the error
// is returned. If fn succeeds, the transaction is committed and any error
// returned by the commit callbacks is reported.
//
// Example:
//
//	err := core.RunTransaction(ctx, driver, func(txCtx context.Context) error {
//	    if err := userModel.Create(txCtx, &user); err != nil {
//	        return err
//	    }
//	    return orderModel.Create(txCtx, &order)
//	})
func RunTransaction(ctx context.Context, driver Driver, fn TransactionFunc) error {
	tx, err := Begin(ctx, driver)
	if err != nil {
		return err
	}
	txCtx := WithTransaction(ctx, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.CombineErrors(err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}
