package runtime

import (
	"runtime"
	"runtime/metrics"
	"sync"
	"time"
)

const (
	cpuTotalMetric   = "/cpu/classes/total:cpu-seconds"
	heapObjectMetric = "/memory/classes/heap/objects:bytes"
	goroutineMetric  = "/sched/goroutines:goroutines"
)

// ResourceUsage is the worker process footprint reported next to the
// consumer listing.
type ResourceUsage struct {
	CPUPercent float64 `json:"cpu_percent"`
	HeapBytes  uint64  `json:"heap_bytes"`
	Goroutines uint64  `json:"goroutines"`
}

// resourceTracker reads the runtime metrics the worker reports. CPU usage
// is the delta between two snapshots, so the first one reports zero.
type resourceTracker struct {
	mu      sync.Mutex
	samples []metrics.Sample
	numCPU  float64

	prevCPU  float64
	prevTime time.Time
}

func newResourceTracker() *resourceTracker {
	return &resourceTracker{numCPU: float64(runtime.GOMAXPROCS(0))}
}

func (r *resourceTracker) Snapshot() ResourceUsage {
	if r == nil {
		return ResourceUsage{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.samples == nil {
		r.samples = []metrics.Sample{
			{Name: cpuTotalMetric},
			{Name: heapObjectMetric},
			{Name: goroutineMetric},
		}
	}
	metrics.Read(r.samples)

	var usage ResourceUsage
	now := time.Now()
	for _, sample := range r.samples {
		switch sample.Value.Kind() {
		case metrics.KindFloat64:
			if sample.Name == cpuTotalMetric {
				usage.CPUPercent = r.cpuPercent(sample.Value.Float64(), now)
			}
		case metrics.KindUint64:
			switch sample.Name {
			case heapObjectMetric:
				usage.HeapBytes = sample.Value.Uint64()
			case goroutineMetric:
				usage.Goroutines = sample.Value.Uint64()
			}
		}
	}
	return usage
}

func (r *resourceTracker) cpuPercent(cpuSeconds float64, now time.Time) float64 {
	defer func() {
		r.prevCPU = cpuSeconds
		r.prevTime = now
	}()
	if r.prevTime.IsZero() || r.numCPU <= 0 {
		return 0
	}
	wall := now.Sub(r.prevTime).Seconds()
	if wall <= 0 {
		return 0
	}
	return (cpuSeconds - r.prevCPU) / wall / r.numCPU * 100
}
