// Package logging provides structured logging with OpenTelemetry integration.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Dual output (stdout + OpenTelemetry)
//   - Automatic context field injection (trace_id, request id, surface)
//   - Redaction of exchange text and credentials
//   - Sampling of chatter below Warn
//
// # Usage
//
//	cfg, err := logging.ConfigFrom(appCfg.Logging)
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	defer logger.Sync()
//
//	ctx = logging.WithRequestID(ctx, "req_123")
//	logger.Info(ctx, "exchange classified", zap.String("decision", "PERSIST"))
//
// # Exchange text
//
// Exchanges are personal conversation fragments. Fields named text or
// exchange are replaced by the encoder; use Exchange to log a length and a
// short digest instead of the content.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertNoExchangeText(t, "my dad died yesterday")
package logging
