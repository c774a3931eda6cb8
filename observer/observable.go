package observer

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/leandroluk/golem-observer/core"
	"go.uber.org/zap"
)

// Observable is the observer registry of one model.
//
// WithoutObservers is not safe against operations running concurrently on
// the same model: they observe the emptied registry while it is active.
type Observable[T any] struct {
	model *core.Model[T]
	name  string
	hooks *core.Hooks
	settings

	mutex         sync.RWMutex
	localList     []Observer
	globalsHidden bool
	observed      bool
}

// Of returns the Observable of a model. Every handle on the same model
// (including WithTenant copies) shares the same Observable.
//
// Options only apply when the Observable is created, on the first call.
// Options given to later calls are ignored and reported with a warning on
// the Observable's logger.
func Of[T any](model *core.Model[T], opts ...Option) *Observable[T] {
	o, created := lookup(model.Hooks(), func() *Observable[T] {
		s := defaultSettings()
		for _, opt := range opts {
			opt(&s)
		}
		return &Observable[T]{
			model:     model,
			name:      model.Name(),
			hooks:     model.Hooks(),
			settings:  s,
			localList: append([]Observer(nil), s.declared...),
		}
	})
	if !created && len(opts) > 0 {
		o.logger.Warn("options ignored, model already has an observable",
			zap.String("model", o.name),
			zap.Int("options", len(opts)),
		)
	}
	return o
}

// Name returns the name of the observed model.
func (o *Observable[T]) Name() string { return o.name }

// IsObserved reports whether Observe succeeded on the model.
func (o *Observable[T]) IsObserved() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.observed
}

// AddObserver registers an observer of this model.
func (o *Observable[T]) AddObserver(factory Factory) error {
	return o.AddObservers(factory)
}

// AddObservers registers several observers of this model, in order.
// Nothing is registered when one of them is invalid.
func (o *Observable[T]) AddObservers(factories ...Factory) error {
	instances, err := build(o.name, factories)
	if err != nil {
		return err
	}
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.localList = append(o.localList, instances...)
	return nil
}

// Observers returns a copy of the model's own observers.
func (o *Observable[T]) Observers() []Observer {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return append([]Observer(nil), o.localList...)
}

// GlobalObservers returns the global observers the model currently sees.
func (o *Observable[T]) GlobalObservers() []Observer {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.globalsLocked()
}

func (o *Observable[T]) globalsLocked() []Observer {
	if o.globalsHidden {
		return nil
	}
	return GlobalObservers()
}

// AllObservers returns the global observers followed by the model's own.
func (o *Observable[T]) AllObservers() []Observer {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return append(o.globalsLocked(), o.localList...)
}

// Observe registers the given observers and installs the dispatcher on
// every hook slot of the model.
//
// It fails with ErrAlreadyObserved when the model is already observed, and
// with ErrWrongObserverType when any observer the model sees is not an
// instance. Nothing changes when it fails.
func (o *Observable[T]) Observe(factories ...Factory) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.observed {
		return alreadyObserved(o.name)
	}

	instances, err := build(o.name, factories)
	if err != nil {
		return err
	}
	for _, observer := range append(o.globalsLocked(), o.localList...) {
		if err := validate(observer, o.name); err != nil {
			return err
		}
	}

	o.observed = true
	o.localList = append(o.localList, instances...)

	for _, phase := range core.Phases {
		register := o.hooks.Before
		if phase == core.PhaseAfter {
			register = o.hooks.After
		}
		for _, event := range core.HookEvents {
			phase, event := phase, event
			register(event, func(ctx context.Context, payload any) error {
				return o.dispatch(ctx, phase, event, payload)
			})
		}
	}
	o.logger.Debug("model observed",
		zap.String("model", o.name),
		zap.Int("observers", len(o.localList)),
	)
	return nil
}

// WithoutObservers runs fn with no observer, global or local, attached to
// the model. The observers are restored when fn returns, fails or panics.
func (o *Observable[T]) WithoutObservers(ctx context.Context, fn func(ctx context.Context) error) error {
	o.mutex.Lock()
	savedLocal, savedHidden := o.localList, o.globalsHidden
	o.localList, o.globalsHidden = nil, true
	o.mutex.Unlock()

	defer func() {
		o.mutex.Lock()
		o.localList, o.globalsHidden = savedLocal, savedHidden
		o.mutex.Unlock()
	}()
	return fn(ctx)
}

// SaveQuietly saves doc through model without running any observer.
// model is the handle to write with, typically a WithTenant copy; nil
// means the handle first given to Of. It must share this Observable.
func (o *Observable[T]) SaveQuietly(ctx context.Context, model *core.Model[T], doc *T) error {
	if model == nil {
		model = o.model
	}
	if model.Hooks() != o.hooks {
		return errors.Wrapf(ErrForeignModel, "model %q is not observed by %q", model.Name(), o.name)
	}
	return o.WithoutObservers(ctx, func(ctx context.Context) error {
		return model.Save(ctx, doc)
	})
}
