package observer

import (
	"github.com/leandroluk/golem-observer/core"
	"go.uber.org/zap"
)

type settings struct {
	logger   *zap.Logger
	emitter  core.Emitter
	metrics  *Metrics
	declared []Observer
}

func defaultSettings() settings {
	return settings{
		logger:  zap.NewNop(),
		emitter: core.DefaultEmitter(),
	}
}

// Option configures an Observable when it is first created by Of.
type Option func(*settings)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEmitter sets where notifications go. The default is core.DefaultEmitter.
// A nil emitter disables notifications.
func WithEmitter(emitter core.Emitter) Option {
	return func(s *settings) { s.emitter = emitter }
}

// WithMetrics records observer executions.
func WithMetrics(metrics *Metrics) Option {
	return func(s *settings) { s.metrics = metrics }
}

// WithObservers declares observer instances owned by the model. They are
// the first local observers and are validated by Observe.
func WithObservers(observers ...Observer) Option {
	return func(s *settings) { s.declared = append(s.declared, observers...) }
}
