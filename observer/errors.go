package observer

import (
	"reflect"
	"runtime"

	"github.com/cockroachdb/errors"
)

var (
	// ErrAlreadyObserved is returned by Observe on a model that is already observed.
	ErrAlreadyObserved = errors.New("observer: model is already observed")
	// ErrWrongObserverType is returned when a value that is not an observer
	// instance is registered.
	ErrWrongObserverType = errors.New("observer: wrong observer type")
	// ErrForeignModel is returned by SaveQuietly for a model handle built on
	// another schema.
	ErrForeignModel = errors.New("observer: model belongs to another observable")
)

func alreadyObserved(model string) error {
	return errors.Wrapf(ErrAlreadyObserved, "the model %q is already observed", model)
}

func wrongObserverType(value any, model string) error {
	name, kind := describe(value)
	return errors.Wrapf(ErrWrongObserverType, "the observer %q must be an instance, %s given in model %q", name, kind, model)
}

// validate rejects values that are not observer instances: nil, nil
// pointers, functions (factories and constructors) and types.
func validate(o Observer, model string) error {
	if o == nil {
		return wrongObserverType(o, model)
	}
	if _, ok := o.(reflect.Type); ok {
		return wrongObserverType(o, model)
	}
	rv := reflect.ValueOf(o)
	switch rv.Kind() {
	case reflect.Func:
		return wrongObserverType(o, model)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return wrongObserverType(o, model)
		}
	}
	return nil
}

func describe(value any) (string, string) {
	if value == nil {
		return "<nil>", "nil"
	}
	if t, ok := value.(reflect.Type); ok {
		return t.String(), "type"
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Func:
		if rv.IsNil() {
			return "<nil>", "func"
		}
		if fn := runtime.FuncForPC(rv.Pointer()); fn != nil {
			return fn.Name(), "func"
		}
		return rv.Type().String(), "func"
	case reflect.Pointer:
		return rv.Type().String(), "nil pointer"
	}
	return rv.Type().String(), rv.Kind().String()
}
