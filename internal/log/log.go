package log

// Kv is a helper type for structured logging key-value pairs.
type Kv = map[string]any

// Logger is the interface that the application loggers should implement.
type Logger interface {
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
	WithValues(values Kv) Logger
}

const noopLogger = noop(0)

// Noop logger doesn't log anything.
var Noop Logger = noopLogger

type noop int

func (n noop) Infof(format string, args ...any)    {}
func (n noop) Warningf(format string, args ...any) {}
func (n noop) Errorf(format string, args ...any)   {}
func (n noop) Debugf(format string, args ...any)   {}
func (n noop) WithValues(_ Kv) Logger              { return n }
