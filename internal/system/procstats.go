// Package system reports resource usage of the running process.
package system

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats is a point-in-time snapshot of this process.
type ProcessStats struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Goroutines int     `json:"goroutines"`
}

// Sampler reads process statistics.
type Sampler struct {
	proc *process.Process
}

// NewSampler binds a sampler to the current process.
func NewSampler() (*Sampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Sampler{proc: proc}, nil
}

// Sample collects the current statistics.
func (s *Sampler) Sample(ctx context.Context) (ProcessStats, error) {
	stats := ProcessStats{Goroutines: runtime.NumGoroutine()}

	mem, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return stats, err
	}
	stats.RSSBytes = mem.RSS

	cpu, err := s.proc.CPUPercentWithContext(ctx)
	if err != nil {
		return stats, err
	}
	stats.CPUPercent = cpu
	return stats, nil
}
