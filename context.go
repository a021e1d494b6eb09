package proction

import (
	"os"
	"time"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// MetricsSink receives Plan/invocation lifecycle events for optional
// instrumentation. The core never imports a metrics library directly;
// proction/metrics provides a concrete Prometheus-backed implementation.
// A nil sink (the default) means every call below is skipped.
type MetricsSink interface {
	InvocationStarted()
	InvocationSettled(dur time.Duration, err error)
	LeakDetected()
}

// Context is process-scoped configuration: an error-reporting sink, the
// leak-audit flag, a Scheduler, and an optional MetricsSink. It lives
// longer than any single Plan — the same Context may back many sequential
// Run calls.
type Context struct {
	reportError  func(error)
	assertNoLeak bool
	scheduler    Scheduler
	metrics      MetricsSink
}

// ContextOption configures a Context: an interface over an unexported
// apply method, so options compose and nil entries are tolerated.
type ContextOption interface {
	applyContext(*contextOptions)
}

type contextOptions struct {
	reportError  func(error)
	assertNoLeak bool
	scheduler    Scheduler
	metrics      MetricsSink
}

type contextOptionFunc func(*contextOptions)

func (f contextOptionFunc) applyContext(o *contextOptions) { f(o) }

// WithReportError overrides the error sink reached by reported errors
// (DeferredRefCount destructor failures, and ref-count bookkeeping errors
// raised after an invocation body has run). Errors returned by user bodies
// and middleware do not reach it; Run returns them in a RunError. It is
// wrapped once at construction to swallow any panic the callback itself
// raises.
func WithReportError(fn func(error)) ContextOption {
	return contextOptionFunc(func(o *contextOptions) { o.reportError = fn })
}

// WithAssertNoLeak enables the post-run leak audit.
func WithAssertNoLeak(enabled bool) ContextOption {
	return contextOptionFunc(func(o *contextOptions) { o.assertNoLeak = enabled })
}

// WithScheduler overrides the default inline Scheduler.
func WithScheduler(s Scheduler) ContextOption {
	return contextOptionFunc(func(o *contextOptions) { o.scheduler = s })
}

// WithMetrics enables instrumentation, routing invocation/leak events to
// sink (typically one built by proction/metrics.NewSink).
func WithMetrics(sink MetricsSink) ContextOption {
	return contextOptionFunc(func(o *contextOptions) { o.metrics = sink })
}

func resolveContextOptions(opts []ContextOption) *contextOptions {
	cfg := &contextOptions{}
	for _, o := range opts {
		if o == nil {
			continue
		}
		o.applyContext(cfg)
	}
	return cfg
}

// defaultLogger is a process-wide structured logger used by the default
// reportError sink: the logiface facade over a zerolog backend writing to
// stderr.
var defaultLogger = izerolog.L.New(izerolog.WithZerolog(zerolog.New(os.Stderr).With().Timestamp().Logger()))

func defaultReportError(err error) {
	defaultLogger.Err().Err(err).Log("proction: reported error")
}

// NewContext constructs a Context from options. reportError defaults to a
// structured logiface/zerolog logger; the Scheduler defaults to
// DefaultScheduler (inline); the leak audit defaults to disabled.
func NewContext(opts ...ContextOption) *Context {
	cfg := resolveContextOptions(opts)

	reportErr := cfg.reportError
	if reportErr == nil {
		reportErr = defaultReportError
	}
	ctx := &Context{
		reportError:  wrapReportError(reportErr),
		assertNoLeak: cfg.assertNoLeak,
		scheduler:    cfg.scheduler,
		metrics:      cfg.metrics,
	}
	if ctx.scheduler == nil {
		ctx.scheduler = DefaultScheduler
	}
	return ctx
}

// wrapReportError swallows any panic raised by the callback itself, so a
// broken sink can never take the driver down with it.
func wrapReportError(fn func(error)) func(error) {
	return func(err error) {
		defer func() {
			if r := recover(); r != nil {
				defaultLogger.Err().Interface("panic", r).Log("proction: reportError callback panicked")
			}
		}()
		fn(err)
	}
}

var _ *logiface.Logger[*izerolog.Event] = defaultLogger
