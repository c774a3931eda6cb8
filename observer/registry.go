package observer

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/leandroluk/golem-observer/core"
)

// globalOwner names the owner of global observers in error messages.
const globalOwner = "global"

// globals is the process-wide observer list shared by every model.
var globals struct {
	mutex sync.RWMutex
	list  []Observer
}

// build instantiates and validates observers from their factories.
func build(owner string, factories []Factory) ([]Observer, error) {
	instances := make([]Observer, 0, len(factories))
	for _, factory := range factories {
		if factory == nil {
			return nil, wrongObserverType(nil, owner)
		}
		instance := factory()
		if err := validate(instance, owner); err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// AddGlobalObserver registers an observer run for every observed model,
// before the model's own observers.
func AddGlobalObserver(factory Factory) error {
	return AddGlobalObservers(factory)
}

// AddGlobalObservers registers several global observers, in order. Nothing
// is registered when one of them is invalid.
func AddGlobalObservers(factories ...Factory) error {
	instances, err := build(globalOwner, factories)
	if err != nil {
		return err
	}
	globals.mutex.Lock()
	defer globals.mutex.Unlock()
	globals.list = append(globals.list, instances...)
	return nil
}

// GlobalObservers returns a copy of the global observer list.
func GlobalObservers() []Observer {
	globals.mutex.RLock()
	defer globals.mutex.RUnlock()
	return append([]Observer(nil), globals.list...)
}

// ResetGlobalObservers empties the global observer list. Meant for tests.
func ResetGlobalObservers() {
	globals.mutex.Lock()
	defer globals.mutex.Unlock()
	globals.list = nil
}

// observables maps a model's hook registry to its Observable.
var observables = struct {
	mutex sync.Mutex
	byKey map[any]any
}{byKey: make(map[any]any)}

// lookup returns the Observable stored under key, creating it when absent.
// created reports whether create ran.
func lookup[T any](key any, create func() *Observable[T]) (o *Observable[T], created bool) {
	observables.mutex.Lock()
	defer observables.mutex.Unlock()
	if existing, ok := observables.byKey[key]; ok {
		o, ok := existing.(*Observable[T])
		if !ok {
			panic(errors.AssertionFailedf("observer: hook registry bound to %T", existing))
		}
		return o, false
	}
	o = create()
	observables.byKey[key] = o
	return o, true
}

// Forget drops the Observable of a model so it can be collected. It reports
// whether one existed.
//
// Hooks installed by Observe stay on the model's schema, so Forget is meant
// for models that are discarded along with it, such as per-test models.
func Forget[T any](model *core.Model[T]) bool {
	observables.mutex.Lock()
	defer observables.mutex.Unlock()
	if _, ok := observables.byKey[model.Hooks()]; !ok {
		return false
	}
	delete(observables.byKey, model.Hooks())
	return true
}
