package fiberpool

import "github.com/NGIN-ORG/NGIN.Base-sub001/logx"

type options struct {
	logger  logx.Logger
	metrics *Metrics
}

func defaultOptions() options {
	return options{logger: logx.Noop}
}

// Option configures a Pool at construction time, following this module's
// functional-options convention (see threadpool's Option and the task
// package's ContextOption for the same shape).
type Option func(*options)

// WithLogger installs l to receive diagnostic log entries (fiber panics,
// submissions after close). A nil l installs the no-op logger.
func WithLogger(l logx.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = logx.Noop
		}
		o.logger = l
	}
}

// WithMetrics attaches m to receive submission/dispatch/completion counters.
// Passing nil is equivalent to omitting the option.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
