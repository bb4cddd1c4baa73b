package log

import (
	"testing"
	"time"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NoopLogger{}

	event := Event{
		Timestamp:  time.Now(),
		DeviceName: "test-device",
		Layer:      LayerJob,
		Category:   CategoryState,
	}
	logger.Log(event)

	event.StateChange = &StateChangeEvent{NewState: "SCANNING"}
	logger.Log(event)

	event.StateChange = nil
	event.Op = &OpEvent{Op: "SCAN", Status: "GOOD"}
	logger.Log(event)

	event.Op = nil
	event.Error = &ErrorEventData{Message: "test error"}
	logger.Log(event)

	event.Error = nil
	event.Trace = &TraceEvent{Subject: "scan-params"}
	logger.Log(event)
}

func TestLoggerInterfaceSatisfaction(t *testing.T) {
	var _ Logger = NoopLogger{}
	var _ Logger = &NoopLogger{}
}

func TestNoopLoggerIsZeroValue(t *testing.T) {
	var logger NoopLogger
	logger.Log(Event{})
}
