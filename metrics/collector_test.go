package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("sentinel", "s3", "gemini-2.5-flash")

	c.IncStreamStarted()
	c.IncStreamStarted()
	c.IncStreamCompleted()
	c.IncStreamAborted()
	c.IncStreamFailed()
	c.AddTextBytes(10)
	c.AddTextBytes(5)
	c.IncControlFramesEmitted()
	c.IncControlFramesEmitted()
	c.IncControlFramesEmitted()
	c.IncControlFramesDropped()
	c.AddMarkersNeutralised(2)
	c.IncAttachmentAnalyses()
	c.IncStoreWriteSuccess()
	c.IncStoreWriteSuccess()
	c.IncStoreWriteFailure()
	c.IncArchiveWriteSuccess()
	c.IncArchiveWriteFailure()
	c.IncAdapterPublishOK()
	c.IncAdapterPublishFailed()

	s := c.Snapshot()

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"StreamsStarted", s.StreamsStarted, 2},
		{"StreamsCompleted", s.StreamsCompleted, 1},
		{"StreamsAborted", s.StreamsAborted, 1},
		{"StreamsFailed", s.StreamsFailed, 1},
		{"TextBytes", s.TextBytes, 15},
		{"ControlFramesEmitted", s.ControlFramesEmitted, 3},
		{"ControlFramesDropped", s.ControlFramesDropped, 1},
		{"MarkersNeutralised", s.MarkersNeutralised, 2},
		{"AttachmentAnalyses", s.AttachmentAnalyses, 1},
		{"StoreWriteSuccess", s.StoreWriteSuccess, 2},
		{"StoreWriteFailure", s.StoreWriteFailure, 1},
		{"ArchiveWriteSuccess", s.ArchiveWriteSuccess, 1},
		{"ArchiveWriteFailure", s.ArchiveWriteFailure, 1},
		{"AdapterPublishOK", s.AdapterPublishOK, 1},
		{"AdapterPublishFailed", s.AdapterPublishFailed, 1},
	}
	for _, tc := range checks {
		if tc.got != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, tc.got, tc.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("binary", "memory", "gemini-2.5-pro")
	s := c.Snapshot()

	if s.Framing != "binary" {
		t.Errorf("Framing = %q, want %q", s.Framing, "binary")
	}
	if s.StorageBackend != "memory" {
		t.Errorf("StorageBackend = %q, want %q", s.StorageBackend, "memory")
	}
	if s.Model != "gemini-2.5-pro" {
		t.Errorf("Model = %q, want %q", s.Model, "gemini-2.5-pro")
	}
}

func TestCollector_RecordZipSummary(t *testing.T) {
	c := NewCollector("sentinel", "memory", "m")

	c.RecordZipSummary(false, []string{
		"zip_too_many_entries: declared 5, processed 2",
		"uncompressed_limit: big.bin",
		"zip_extract_error: a.txt: boom",
		"zip_extract_error: b.txt: boom",
	})
	c.RecordZipSummary(true, []string{"zip_parse_failed"})

	s := c.Snapshot()
	if s.ZipSummaries != 2 {
		t.Errorf("ZipSummaries = %d, want 2", s.ZipSummaries)
	}
	if s.ZipParseFailures != 1 {
		t.Errorf("ZipParseFailures = %d, want 1", s.ZipParseFailures)
	}
	want := map[string]int64{
		"zip_too_many_entries": 1,
		"uncompressed_limit":   1,
		"zip_extract_error":    2,
		"zip_parse_failed":     1,
	}
	for code, n := range want {
		if s.ZipWarningsByCode[code] != n {
			t.Errorf("ZipWarningsByCode[%q] = %d, want %d", code, s.ZipWarningsByCode[code], n)
		}
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("sentinel", "memory", "m")
	c.RecordZipSummary(false, []string{"zip_extract_error"})

	s := c.Snapshot()
	s.ZipWarningsByCode["zip_extract_error"] = 99

	if got := c.Snapshot().ZipWarningsByCode["zip_extract_error"]; got != 1 {
		t.Errorf("mutating snapshot leaked into collector: got %d, want 1", got)
	}
}

func TestCollector_NilReceiverSafe(t *testing.T) {
	var c *Collector

	// None of these should panic.
	c.IncStreamStarted()
	c.IncStreamCompleted()
	c.AddTextBytes(3)
	c.IncControlFramesDropped()
	c.RecordZipSummary(true, []string{"zip_parse_failed"})
	c.IncStoreWriteFailure()

	s := c.Snapshot()
	if s.StreamsStarted != 0 {
		t.Errorf("nil collector snapshot StreamsStarted = %d, want 0", s.StreamsStarted)
	}
}

func TestCollector_ConcurrentIncrements(t *testing.T) {
	c := NewCollector("sentinel", "memory", "m")
	const goroutines = 50
	const perGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range perGoroutine {
				c.IncStreamStarted()
				c.AddTextBytes(2)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.StreamsStarted != goroutines*perGoroutine {
		t.Errorf("StreamsStarted = %d, want %d", s.StreamsStarted, goroutines*perGoroutine)
	}
	if s.TextBytes != 2*goroutines*perGoroutine {
		t.Errorf("TextBytes = %d, want %d", s.TextBytes, 2*goroutines*perGoroutine)
	}
}
