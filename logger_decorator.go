package kernel

// LoggerDecorator wraps a Logger to add behavior without changing its
// concrete implementation. ParallelTimeline uses RankLoggerDecorator so
// every record a worker emits is already tagged with its rank, which
// matters once several workers' logs are interleaved in one place.
type LoggerDecorator interface {
	Logger
	GetInnerLogger() Logger
}

// BaseLoggerDecorator forwards every call to the wrapped Logger and is
// embedded by the concrete decorators below so each only needs to
// override what it actually changes.
type BaseLoggerDecorator struct {
	inner Logger
}

func NewBaseLoggerDecorator(inner Logger) *BaseLoggerDecorator {
	return &BaseLoggerDecorator{inner: inner}
}

func (d *BaseLoggerDecorator) GetInnerLogger() Logger { return d.inner }

func (d *BaseLoggerDecorator) Info(msg string, args ...any)  { d.inner.Info(msg, args...) }
func (d *BaseLoggerDecorator) Error(msg string, args ...any) { d.inner.Error(msg, args...) }
func (d *BaseLoggerDecorator) Warn(msg string, args ...any)  { d.inner.Warn(msg, args...) }
func (d *BaseLoggerDecorator) Debug(msg string, args ...any) { d.inner.Debug(msg, args...) }

// ValueInjectionLoggerDecorator prepends a fixed set of key-value pairs
// to every log call made through it.
type ValueInjectionLoggerDecorator struct {
	*BaseLoggerDecorator
	injectedArgs []any
}

func NewValueInjectionLoggerDecorator(inner Logger, injectedArgs ...any) *ValueInjectionLoggerDecorator {
	return &ValueInjectionLoggerDecorator{
		BaseLoggerDecorator: NewBaseLoggerDecorator(inner),
		injectedArgs:        injectedArgs,
	}
}

func (d *ValueInjectionLoggerDecorator) combineArgs(originalArgs []any) []any {
	if len(d.injectedArgs) == 0 {
		return originalArgs
	}
	if len(originalArgs) == 0 {
		return d.injectedArgs
	}
	combined := make([]any, 0, len(d.injectedArgs)+len(originalArgs))
	combined = append(combined, d.injectedArgs...)
	combined = append(combined, originalArgs...)
	return combined
}

func (d *ValueInjectionLoggerDecorator) Info(msg string, args ...any) {
	d.inner.Info(msg, d.combineArgs(args)...)
}
func (d *ValueInjectionLoggerDecorator) Error(msg string, args ...any) {
	d.inner.Error(msg, d.combineArgs(args)...)
}
func (d *ValueInjectionLoggerDecorator) Warn(msg string, args ...any) {
	d.inner.Warn(msg, d.combineArgs(args)...)
}
func (d *ValueInjectionLoggerDecorator) Debug(msg string, args ...any) {
	d.inner.Debug(msg, d.combineArgs(args)...)
}

// RankLoggerDecorator is a ValueInjectionLoggerDecorator specialized for
// the one piece of context every ParallelTimeline log line needs: which
// worker rank emitted it. Constructed once per ParallelTimeline.
func RankLoggerDecorator(inner Logger, rank int) Logger {
	return NewValueInjectionLoggerDecorator(inner, "rank", rank)
}
