package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSlogAdapterLogsOpEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slogger := slog.New(handler)

	adapter := NewSlogAdapter(slogger)

	adapter.Log(Event{
		Timestamp:  time.Now(),
		DeviceName: "device-1",
		Layer:      LayerReader,
		Category:   CategoryOp,
		Op: &OpEvent{
			Op:             "LOAD",
			Status:         "GOOD",
			ImagesReceived: 2,
		},
	})

	output := buf.String()
	if output == "" {
		t.Fatal("no output produced")
	}

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if logEntry["device"] != "device-1" {
		t.Errorf("device: got %v, want %q", logEntry["device"], "device-1")
	}
	if logEntry["layer"] != "READER" {
		t.Errorf("layer: got %v, want %q", logEntry["layer"], "READER")
	}
	if logEntry["op"] != "LOAD" {
		t.Errorf("op: got %v, want %q", logEntry["op"], "LOAD")
	}
	if logEntry["images_received"] != float64(2) {
		t.Errorf("images_received: got %v, want %v", logEntry["images_received"], 2)
	}
}

func TestSlogAdapterLogsStateChangeEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slogger := slog.New(handler)

	adapter := NewSlogAdapter(slogger)

	adapter.Log(Event{
		Timestamp:  time.Now(),
		DeviceName: "device-2",
		Layer:      LayerJob,
		Category:   CategoryState,
		StateChange: &StateChangeEvent{
			OldState: "IDLE",
			NewState: "SCANNING",
		},
	})

	output := buf.String()
	if output == "" {
		t.Fatal("no output produced")
	}

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if logEntry["old_state"] != "IDLE" {
		t.Errorf("old_state: got %v, want %q", logEntry["old_state"], "IDLE")
	}
	if logEntry["new_state"] != "SCANNING" {
		t.Errorf("new_state: got %v, want %q", logEntry["new_state"], "SCANNING")
	}
}

func TestSlogAdapterIncludesDeviceName(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slogger := slog.New(handler)

	adapter := NewSlogAdapter(slogger)

	adapter.Log(Event{
		Timestamp:  time.Now(),
		DeviceName: "canon-mg3600-scanner",
		Layer:      LayerDiscovery,
		Category:   CategoryState,
		StateChange: &StateChangeEvent{
			NewState: "found",
		},
	})

	output := buf.String()
	if !strings.Contains(output, "canon-mg3600-scanner") {
		t.Error("output does not contain device name")
	}
}

func TestSlogAdapterInterfaceSatisfaction(t *testing.T) {
	var _ Logger = (*SlogAdapter)(nil)
}
