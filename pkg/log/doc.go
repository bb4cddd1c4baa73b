// Package log provides structured device-subsystem logging for the scanner
// core.
//
// This package defines the Logger interface and Event types for capturing
// state transitions, protocol operations, errors, and diagnostic traces
// emitted by the discovery, HTTP activity, job state machine, and reader
// layers. It is separate from operational logging (slog) - event capture
// provides a complete machine-readable trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	fileLogger, _ := log.NewFileLogger("/var/log/escl-core/device.elog")
//
//	// Both: use MultiLogger
//	logger := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at four layers (discovery, HTTP, job, reader) and
// carry one of: a StateChangeEvent, an OpEvent, an ErrorEventData, or a
// TraceEvent.
//
// # File Format
//
// Log files use CBOR encoding with a .elog extension.
package log
