// internal/logging/otel.go
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// consoleWriter is stdout for the server. CLI commands log to stderr so
// their stdout stays parseable.
func consoleWriter(out OutputConfig) io.Writer {
	if out.Stderr {
		return os.Stderr
	}
	return os.Stdout
}

// newDualCore tees the console and OTEL bridge outputs, both redacted,
// then applies sampling.
func newDualCore(cfg *Config, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	var cores []zapcore.Core

	if cfg.Output.Stdout {
		enc, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if err != nil {
			return nil, fmt.Errorf("failed to create redacting encoder: %w", err)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(consoleWriter(cfg.Output)), cfg.Level))
	}
	if cfg.Output.OTEL && otelProvider != nil {
		core, err := newRedactingCore(otelzap.NewCore("roomgate", otelzap.WithLoggerProvider(otelProvider)), cfg.Redaction)
		if err != nil {
			return nil, fmt.Errorf("failed to create redacting core: %w", err)
		}
		cores = append(cores, core)
	}

	if len(cores) == 0 {
		return nil, errors.New("at least one output must be enabled and available")
	}
	return newSampledCore(zapcore.NewTee(cores...), cfg.Sampling), nil
}
