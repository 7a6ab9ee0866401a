// Package log provides structured logging for the gifteval harness.
//
// The package wraps rs/zerolog behind a small key/value Logger interface so
// that library code logs through a stable API while applications keep full
// control over level, output, and formatting.
//
// Two styles are supported:
//
//   - The Logger interface with variadic key/value pairs, obtained from
//     GetLoggerWithName or a LoggerProvider. This is what harness packages
//     use internally.
//   - The raw zerolog.Logger from GetLogger for fluent call chains in
//     application code.
//
// Example:
//
//	log.SetupLogger("debug")
//	logger := log.GetLoggerWithName("eval").With(
//	    log.ModelNameKey, "seasonal_naive",
//	)
//	logger.Info("Evaluation started",
//	    log.DatasetKey, "m4_hourly",
//	    log.TermKey, "short",
//	)
package log

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Standard field keys used across the harness. Using shared constants keeps
// log output greppable across packages.
const (
	// LoggerNameKey carries the component name set by GetLoggerWithName.
	LoggerNameKey = "logger"

	// ModelNameKey identifies the predictor producing a log line.
	ModelNameKey = "model"

	// ComponentKey identifies the package or subsystem.
	ComponentKey = "component"

	// OperationKey names the operation in progress (fit, predict, evaluate).
	OperationKey = "operation"

	// PhaseKey names the lifecycle phase (training, inference, evaluation).
	PhaseKey = "phase"

	// DatasetKey identifies the dataset being processed.
	DatasetKey = "dataset"

	// ConfigKey identifies the full dataset configuration (key/freq/term).
	ConfigKey = "config"

	// TermKey identifies the forecast term (short, medium, long).
	TermKey = "term"

	// FreqKey identifies the pandas-style frequency string of a dataset.
	FreqKey = "freq"

	// WindowsKey carries the number of rolling evaluation windows.
	WindowsKey = "windows"

	// SeriesKey carries a series count.
	SeriesKey = "series"

	// SamplesKey carries a sample or instance count.
	SamplesKey = "samples"

	// PredsKey carries a prediction count.
	PredsKey = "preds"

	// BatchSizeKey carries the inference batch size.
	BatchSizeKey = "batch_size"

	// RunIDKey carries the unique identifier of a suite run.
	RunIDKey = "run_id"

	// DurationMsKey carries an elapsed time in milliseconds.
	DurationMsKey = "duration_ms"

	// PathKey carries a file or directory path.
	PathKey = "path"
)

// Standard values for OperationKey.
const (
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationEvaluate = "evaluate"
	OperationLoad     = "load"
)

// Standard values for PhaseKey.
const (
	PhaseTraining   = "training"
	PhaseInference  = "inference"
	PhaseEvaluation = "evaluation"
)

// Logger is the structured logging interface used by harness packages.
// Methods accept a message and alternating key/value pairs:
//
//	logger.Info("Evaluation completed",
//	    log.DatasetKey, "m4_hourly",
//	    log.DurationMsKey, elapsed.Milliseconds(),
//	)
//
// Keys must be strings; pairs with non-string keys are dropped.
type Logger interface {
	// Debug logs a message at debug level with optional key/value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at info level with optional key/value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at warn level with optional key/value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at error level with optional key/value pairs.
	Error(msg string, keysAndValues ...any)

	// With returns a child logger with the key/value pairs attached to
	// every subsequent log line.
	With(keysAndValues ...any) Logger
}

// LoggerProvider creates named loggers. Packages that want to defer the
// choice of backend hold a LoggerProvider and request loggers from it.
type LoggerProvider interface {
	// GetLoggerWithName returns a Logger tagged with the given component name.
	GetLoggerWithName(name string) Logger
}

// ZerologProvider is a LoggerProvider backed by rs/zerolog.
type ZerologProvider struct {
	base zerolog.Logger
}

// NewZerologProvider creates a provider writing JSON lines to stderr at the
// given level.
//
// Parameters:
//   - level: minimum level to emit, typically from ToLogLevel
//
// Returns:
//   - *ZerologProvider: a provider producing named zerolog-backed loggers
//
// Example:
//
//	provider := log.NewZerologProvider(log.ToLogLevel("info"))
//	logger := provider.GetLoggerWithName("dataset")
func NewZerologProvider(level zerolog.Level) *ZerologProvider {
	base := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	return &ZerologProvider{base: base}
}

// GetLoggerWithName returns a Logger tagged with name under LoggerNameKey.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return zerologLogger{zl: p.base.With().Str(LoggerNameKey, name).Logger()}
}

// FromZerolog wraps an existing zerolog.Logger in the Logger interface.
// Useful when the application already owns a configured zerolog instance.
func FromZerolog(zl zerolog.Logger) Logger {
	return zerologLogger{zl: zl}
}

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	zl zerolog.Logger
}

func (l zerologLogger) Debug(msg string, keysAndValues ...any) {
	appendFields(l.zl.Debug(), keysAndValues).Msg(msg)
}

func (l zerologLogger) Info(msg string, keysAndValues ...any) {
	appendFields(l.zl.Info(), keysAndValues).Msg(msg)
}

func (l zerologLogger) Warn(msg string, keysAndValues ...any) {
	appendFields(l.zl.Warn(), keysAndValues).Msg(msg)
}

func (l zerologLogger) Error(msg string, keysAndValues ...any) {
	appendFields(l.zl.Error(), keysAndValues).Msg(msg)
}

func (l zerologLogger) With(keysAndValues ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, keysAndValues[i+1])
	}
	return zerologLogger{zl: ctx.Logger()}
}

// appendFields applies alternating key/value pairs to a pending event.
// Pairs with non-string keys are dropped; a trailing key without a value is
// dropped.
func appendFields(ev *zerolog.Event, keysAndValues []any) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	return ev
}

var (
	globalMu       sync.RWMutex
	globalLogger   = zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	globalProvider LoggerProvider
)

// SetupLogger configures the global logger with human-readable console
// output at the given level. Call once at application startup; library code
// picks up the configuration through GetLogger and GetLoggerWithName.
//
// Parameters:
//   - level: level name accepted by ToLogLevel ("debug", "info", "warn", ...)
//
// Example:
//
//	log.SetupLogger("debug")
func SetupLogger(level string) {
	globalMu.Lock()
	defer globalMu.Unlock()
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	globalLogger = zerolog.New(writer).Level(ToLogLevel(level)).With().Timestamp().Logger()
	globalProvider = &ZerologProvider{base: globalLogger}
}

// SetLoggerProvider replaces the provider used by GetLoggerWithName. Useful
// in tests to capture log output.
func SetLoggerProvider(p LoggerProvider) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalProvider = p
}

// GetLogger returns a copy of the global zerolog.Logger for fluent use:
//
//	log.GetLogger().Error().Err(err).Str("dataset", name).Msg("load failed")
func GetLogger() zerolog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// GetLoggerWithName returns a named Logger from the global provider,
// initializing a default info-level provider on first use.
func GetLoggerWithName(name string) Logger {
	globalMu.Lock()
	if globalProvider == nil {
		globalProvider = &ZerologProvider{base: globalLogger}
	}
	p := globalProvider
	globalMu.Unlock()
	return p.GetLoggerWithName(name)
}

// LogError logs err at error level with a message through the global logger.
func LogError(err error, msg string) {
	logger := GetLogger()
	logger.Error().Err(err).Msg(msg)
}

// ToLogLevel converts a level name to a zerolog.Level. Unknown names map to
// info.
//
// Parameters:
//   - s: one of "trace", "debug", "info", "warn", "error", "fatal",
//     "panic", "disabled" (case-insensitive)
//
// Returns:
//   - zerolog.Level: the matching level, or zerolog.InfoLevel for unknown input
func ToLogLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
