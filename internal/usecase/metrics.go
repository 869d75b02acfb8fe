package usecase

import (
	"sync"
	"time"

	"github.com/example/ai-check/internal/fusion"
)

// MetricsSummary represents aggregated detection insights since startup.
type MetricsSummary struct {
	TotalRequests              int64   `json:"total_requests"`
	SuccessfulRequests         int64   `json:"successful_requests"`
	FailedRequests             int64   `json:"failed_requests"`
	SuccessRate                float64 `json:"success_rate"`
	AIGenerated                int64   `json:"ai_generated"`
	Original                   int64   `json:"original"`
	HeuristicInvocations       int64   `json:"heuristic_invocations"`
	AverageScore               float64 `json:"average_score"`
	AverageProcessingLatencyMs float64 `json:"average_processing_latency_ms"`
}

type detectionStats struct {
	mu           sync.Mutex
	successes    int64
	failures     int64
	aiGenerated  int64
	original     int64
	heuristic    int64
	scoreSum     float64
	latencySumMs float64
}

func (s *detectionStats) record(d fusion.Decision, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes++
	switch d.Verdict {
	case fusion.AIGenerated:
		s.aiGenerated++
	case fusion.Original:
		s.original++
	}
	if d.HeuristicInvoked {
		s.heuristic++
	}
	s.scoreSum += d.ClassifierScore
	s.latencySumMs += float64(latency) / float64(time.Millisecond)
}

func (s *detectionStats) recordFailure() {
	s.mu.Lock()
	s.failures++
	s.mu.Unlock()
}

// MetricsSummary aggregates the detections served by this process.
func (uc *DetectionUseCase) MetricsSummary() *MetricsSummary {
	s := uc.stats
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &MetricsSummary{
		TotalRequests:        s.successes + s.failures,
		SuccessfulRequests:   s.successes,
		FailedRequests:       s.failures,
		AIGenerated:          s.aiGenerated,
		Original:             s.original,
		HeuristicInvocations: s.heuristic,
	}
	if summary.TotalRequests > 0 {
		summary.SuccessRate = float64(s.successes) / float64(summary.TotalRequests)
	}
	if s.successes > 0 {
		summary.AverageScore = s.scoreSum / float64(s.successes)
		summary.AverageProcessingLatencyMs = s.latencySumMs / float64(s.successes)
	}
	return summary
}
