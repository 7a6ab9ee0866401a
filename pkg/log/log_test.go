package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gifteval/gifteval/pkg/log"
)

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.Disabled},
		{"off", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{"  info  ", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := log.ToLogLevel(tt.input); got != tt.want {
			t.Errorf("ToLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	logger := log.FromZerolog(zl)
	logger.Info("evaluation started",
		log.DatasetKey, "m4_hourly",
		log.WindowsKey, 1,
	)

	out := buf.String()
	if !strings.Contains(out, `"dataset":"m4_hourly"`) {
		t.Errorf("expected dataset field in output, got %s", out)
	}
	if !strings.Contains(out, `"windows":1`) {
		t.Errorf("expected windows field in output, got %s", out)
	}
	if !strings.Contains(out, `"message":"evaluation started"`) {
		t.Errorf("expected message in output, got %s", out)
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	logger := log.FromZerolog(zl).With(log.ModelNameKey, "seasonal_naive")
	logger.Info("batch done")

	out := buf.String()
	if !strings.Contains(out, `"model":"seasonal_naive"`) {
		t.Errorf("expected model field from With, got %s", out)
	}
}

func TestLoggerDropsMalformedPairs(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	logger := log.FromZerolog(zl)
	// Non-string key and a trailing key without a value are both dropped.
	logger.Info("line", 42, "value", log.DatasetKey, "loop_seattle", "dangling")

	out := buf.String()
	if !strings.Contains(out, `"dataset":"loop_seattle"`) {
		t.Errorf("expected valid pair to survive, got %s", out)
	}
	if strings.Contains(out, "dangling") {
		t.Errorf("expected dangling key to be dropped, got %s", out)
	}
}

func TestProviderTagsName(t *testing.T) {
	// NewZerologProvider writes to stderr; use FromZerolog for capture and
	// check the provider path separately through the level gate.
	provider := log.NewZerologProvider(zerolog.Disabled)
	logger := provider.GetLoggerWithName("dataset")
	if logger == nil {
		t.Fatal("expected non-nil logger from provider")
	}
	// Must not panic at disabled level.
	logger.Debug("suppressed")
	logger.Info("suppressed")
}

// captureProvider hands out loggers that write JSON lines to a shared buffer.
type captureProvider struct {
	buf *bytes.Buffer
}

func (p *captureProvider) GetLoggerWithName(name string) log.Logger {
	return log.FromZerolog(zerolog.New(p.buf).With().Str(log.LoggerNameKey, name).Logger())
}

func TestSetLoggerProvider(t *testing.T) {
	var buf bytes.Buffer
	log.SetLoggerProvider(&captureProvider{buf: &buf})
	defer log.SetLoggerProvider(log.NewZerologProvider(zerolog.InfoLevel))

	log.GetLoggerWithName("runner").Info("task done", log.ModelNameKey, "naive")

	out := buf.String()
	if !strings.Contains(out, `"logger":"runner"`) {
		t.Errorf("expected logger name from capture provider, got %s", out)
	}
	if !strings.Contains(out, `"model":"naive"`) {
		t.Errorf("expected field through captured logger, got %s", out)
	}
}

func TestGetLoggerWithName(t *testing.T) {
	logger := log.GetLoggerWithName("eval")
	if logger == nil {
		t.Fatal("expected non-nil logger from global provider")
	}
}
