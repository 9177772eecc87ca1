// Package telemetry provides OpenTelemetry instrumentation for roomgate.
//
// Traces and metrics are exported over OTLP (gRPC or HTTP) to a collector.
// Telemetry is off by default:
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc
//	  sample_rate: 1.0
//
// Failures degrade to no-op providers instead of failing startup.
//
// Tests use TestTelemetry, which records spans in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	svc := gate.New(..., gate.WithTracer(tt.Tracer("test")))
//	tt.AssertSpanExists(t, "gate.Process")
package telemetry
