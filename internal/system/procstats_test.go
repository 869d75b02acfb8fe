package system

import (
	"context"
	"testing"
)

func TestSampleReportsCurrentProcess(t *testing.T) {
	sampler, err := NewSampler()
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}

	stats, err := sampler.Sample(context.Background())
	if err != nil {
		t.Skipf("process stats unavailable on this platform: %v", err)
	}
	if stats.RSSBytes == 0 {
		t.Fatal("expected non-zero resident set size")
	}
	if stats.Goroutines < 1 {
		t.Fatalf("expected at least one goroutine, got %d", stats.Goroutines)
	}
	if stats.CPUPercent < 0 {
		t.Fatalf("unexpected cpu percent: %f", stats.CPUPercent)
	}
}
