package artifact

import (
	"context"
	"testing"
	"time"
)

func TestKeyLayout(t *testing.T) {
	when := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	if got, want := Key("run-1", KindReport, "", when), "runs/2026/03/05/run-1/report.json"; got != want {
		t.Errorf("Key(report) = %q, want %q", got, want)
	}
	if got, want := Key("run-1", KindSamples, "t1_violations", when), "runs/2026/03/05/run-1/samples/t1_violations.json"; got != want {
		t.Errorf("Key(samples) = %q, want %q", got, want)
	}
}

func TestMemoryWriteAndGet(t *testing.T) {
	m := NewMemory()
	when := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

	key, url, err := m.Write(context.Background(), "run-1", KindLogs, "", "text/plain", []byte("hello"), when)
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if url != nil {
		t.Fatalf("expected no url from the memory writer, got %v", *url)
	}
	got, ok := m.Get(key)
	if !ok || string(got) != "hello" {
		t.Fatalf("expected to retrieve written content, got %q, ok=%v", got, ok)
	}
}
