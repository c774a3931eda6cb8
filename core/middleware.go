// Package core provides the fundamental building blocks of the golem ORM.
// This file defines the middleware system, which allows cross-cutting concerns
// (logging, auditing, metrics, etc.) to be applied to ORM operations.
package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Operation represents the type of operation being executed by the ORM.
//
// It is used within middlewares to distinguish between inserts, updates,
// deletes, and queries.
type Operation string

const (
	// OperationInsert corresponds to an insert (create) operation.
	OperationInsert Operation = "insert"
	// OperationUpdate corresponds to an update operation.
	OperationUpdate Operation = "update"
	// OperationDelete corresponds to a delete operation.
	OperationDelete Operation = "delete"
	// OperationFind corresponds to a query (find, fetch, count) operation.
	OperationFind Operation = "find"
	// OperationPaginate corresponds to a paginated query.
	OperationPaginate Operation = "paginate"
)

// Handler is the function signature executed by the ORM pipeline.
//
// It receives a context, the operation type, and an arbitrary payload.
// Handlers are composed by middlewares to add cross-cutting logic.
type Handler func(ctx context.Context, op Operation, payload any) error

// Middleware is a function that wraps a Handler with additional logic.
//
// Middlewares are chained globally and executed for every operation.
// They follow the decorator pattern.
type Middleware func(next Handler) Handler

var (
	middlewareMutex      sync.RWMutex
	globalMiddlewareList []Middleware
)

// Use registers a new global middleware, applied to all operations.
//
// Middlewares run in registration order: the first registered one is the
// outermost wrapper.
func Use(mw Middleware) {
	middlewareMutex.Lock()
	defer middlewareMutex.Unlock()
	globalMiddlewareList = append(globalMiddlewareList, mw)
}

// runMiddlewares applies the chain of middlewares to the final handler.
func runMiddlewares(final Handler) Handler {
	middlewareMutex.RLock()
	defer middlewareMutex.RUnlock()
	h := final
	// wrap from the innermost so that index 0 ends up outermost
	for i := len(globalMiddlewareList) - 1; i >= 0; i-- {
		h = globalMiddlewareList[i](h)
	}
	return h
}

// dispatchOperation executes an operation through the global middleware chain.
//
// The exec function contains the core logic of the operation, hooks
// included, and is wrapped by the registered middlewares.
func dispatchOperation(ctx context.Context, op Operation, payload any, exec func(ctx context.Context) error) error {
	handler := runMiddlewares(func(ctx context.Context, op Operation, payload any) error {
		return exec(ctx)
	})
	return handler(ctx, op, payload)
}

// DebugMiddleware logs all operations passing through the ORM.
//
// It measures execution time and logs both success and error cases at
// debug level. This is useful for debugging and profiling.
//
// Example:
//
//	core.Use(core.DebugMiddleware(logger))
func DebugMiddleware(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, op Operation, payload any) error {
			start := time.Now()
			fields := []zap.Field{zap.String("op", string(op))}
			if tx := TransactionFrom(ctx); tx != nil {
				fields = append(fields, zap.String("tx", tx.ID()))
			}
			started := append(fields[:len(fields):len(fields)], zap.Any("payload", payload))
			if qb, ok := payload.(QueryBuilder); ok && qb.Options() != nil {
				started = append(started, zap.Stringer("where", qb.Options().Condition))
			}
			logger.Debug("operation started", started...)

			err := next(ctx, op, payload)
			fields = append(fields, zap.Duration("took", time.Since(start)))
			if err != nil {
				fields = append(fields, zap.Error(err))
				logger.Debug("operation failed", fields...)
			} else {
				logger.Debug("operation succeeded", fields...)
			}
			return err
		}
	}
}
