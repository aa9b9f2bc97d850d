// Package telemetry provides OpenTelemetry initialization and helpers
// for tracing outbound provider calls made by fridgechef.
//
// The package configures OTLP HTTP export for traces and is a no-op
// unless an exporter endpoint is configured.
package telemetry
