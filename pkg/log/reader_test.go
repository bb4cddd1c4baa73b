package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.elog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func TestReaderIteratesEvents(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), DeviceName: "dev-1", Layer: LayerDiscovery, Category: CategoryState},
		{Timestamp: time.Now(), DeviceName: "dev-2", Layer: LayerHTTP, Category: CategoryOp},
		{Timestamp: time.Now(), DeviceName: "dev-3", Layer: LayerJob, Category: CategoryState},
	}

	path := createTestLogFile(t, events)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var read []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		read = append(read, event)
	}

	if len(read) != 3 {
		t.Fatalf("got %d events, want 3", len(read))
	}

	if read[0].DeviceName != "dev-1" {
		t.Errorf("first event DeviceName = %q, want %q", read[0].DeviceName, "dev-1")
	}
	if read[2].DeviceName != "dev-3" {
		t.Errorf("last event DeviceName = %q, want %q", read[2].DeviceName, "dev-3")
	}
}

func TestReaderHandlesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.elog")

	logger, _ := NewFileLogger(path)
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	event, err := reader.Next()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got err=%v, event=%+v", err, event)
	}
}

func TestReaderReturnsEOFAfterLastEvent(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), DeviceName: "dev-1", Layer: LayerDiscovery, Category: CategoryState},
	}

	path := createTestLogFile(t, events)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	_, err = reader.Next()
	if err != nil {
		t.Fatalf("first Next failed: %v", err)
	}

	_, err = reader.Next()
	if err != io.EOF {
		t.Errorf("expected io.EOF after all events, got %v", err)
	}
}

func TestReaderFilterByDeviceName(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), DeviceName: "dev-A", Layer: LayerDiscovery, Category: CategoryState},
		{Timestamp: time.Now(), DeviceName: "dev-B", Layer: LayerHTTP, Category: CategoryOp},
		{Timestamp: time.Now(), DeviceName: "dev-A", Layer: LayerJob, Category: CategoryState},
		{Timestamp: time.Now(), DeviceName: "dev-C", Layer: LayerDiscovery, Category: CategoryOp},
	}

	path := createTestLogFile(t, events)

	filter := Filter{DeviceName: "dev-A"}
	reader, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	var read []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		read = append(read, event)
	}

	if len(read) != 2 {
		t.Fatalf("got %d events, want 2", len(read))
	}

	for _, e := range read {
		if e.DeviceName != "dev-A" {
			t.Errorf("event has DeviceName=%q, want %q", e.DeviceName, "dev-A")
		}
	}
}

func TestReaderFilterByLayer(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), DeviceName: "dev-1", Layer: LayerDiscovery, Category: CategoryState},
		{Timestamp: time.Now(), DeviceName: "dev-2", Layer: LayerHTTP, Category: CategoryOp},
		{Timestamp: time.Now(), DeviceName: "dev-3", Layer: LayerHTTP, Category: CategoryError},
		{Timestamp: time.Now(), DeviceName: "dev-4", Layer: LayerJob, Category: CategoryState},
	}

	path := createTestLogFile(t, events)

	layer := LayerHTTP
	filter := Filter{Layer: &layer}
	reader, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	var read []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		read = append(read, event)
	}

	if len(read) != 2 {
		t.Fatalf("got %d events, want 2", len(read))
	}

	for _, e := range read {
		if e.Layer != LayerHTTP {
			t.Errorf("event has Layer=%v, want %v", e.Layer, LayerHTTP)
		}
	}
}

func TestReaderFilterByTimeRange(t *testing.T) {
	baseTime := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)

	events := []Event{
		{Timestamp: baseTime.Add(-1 * time.Hour), DeviceName: "dev-1", Layer: LayerDiscovery, Category: CategoryState},
		{Timestamp: baseTime, DeviceName: "dev-2", Layer: LayerHTTP, Category: CategoryOp},
		{Timestamp: baseTime.Add(30 * time.Minute), DeviceName: "dev-3", Layer: LayerJob, Category: CategoryState},
		{Timestamp: baseTime.Add(2 * time.Hour), DeviceName: "dev-4", Layer: LayerDiscovery, Category: CategoryOp},
	}

	path := createTestLogFile(t, events)

	start := baseTime.Add(-5 * time.Minute)
	end := baseTime.Add(1 * time.Hour)
	filter := Filter{
		TimeStart: &start,
		TimeEnd:   &end,
	}
	reader, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	var read []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		read = append(read, event)
	}

	if len(read) != 2 {
		t.Fatalf("got %d events, want 2 (events within time range)", len(read))
	}

	if read[0].DeviceName != "dev-2" {
		t.Errorf("first event DeviceName = %q, want %q", read[0].DeviceName, "dev-2")
	}
	if read[1].DeviceName != "dev-3" {
		t.Errorf("second event DeviceName = %q, want %q", read[1].DeviceName, "dev-3")
	}
}

func TestReaderFilterByCategory(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), DeviceName: "dev-1", Layer: LayerDiscovery, Category: CategoryState},
		{Timestamp: time.Now(), DeviceName: "dev-2", Layer: LayerHTTP, Category: CategoryOp},
		{Timestamp: time.Now(), DeviceName: "dev-3", Layer: LayerJob, Category: CategoryState},
		{Timestamp: time.Now(), DeviceName: "dev-4", Layer: LayerDiscovery, Category: CategoryTrace},
	}

	path := createTestLogFile(t, events)

	cat := CategoryState
	filter := Filter{Category: &cat}
	reader, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	var read []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		read = append(read, event)
	}

	if len(read) != 2 {
		t.Fatalf("got %d events, want 2", len(read))
	}

	for _, e := range read {
		if e.Category != CategoryState {
			t.Errorf("event has Category=%v, want %v", e.Category, CategoryState)
		}
	}
}

func TestReaderCombinedFilters(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), DeviceName: "dev-A", Layer: LayerHTTP, Category: CategoryOp},
		{Timestamp: time.Now(), DeviceName: "dev-A", Layer: LayerJob, Category: CategoryState},
		{Timestamp: time.Now(), DeviceName: "dev-B", Layer: LayerJob, Category: CategoryState},
		{Timestamp: time.Now(), DeviceName: "dev-A", Layer: LayerJob, Category: CategoryOp},
	}

	path := createTestLogFile(t, events)

	layer := LayerJob
	cat := CategoryState
	filter := Filter{
		DeviceName: "dev-A",
		Layer:      &layer,
		Category:   &cat,
	}
	reader, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	var read []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		read = append(read, event)
	}

	if len(read) != 1 {
		t.Fatalf("got %d events, want 1", len(read))
	}

	if read[0].DeviceName != "dev-A" || read[0].Layer != LayerJob || read[0].Category != CategoryState {
		t.Error("event doesn't match all filter criteria")
	}
}
