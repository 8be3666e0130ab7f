// Package benchmark measures detector throughput over a set of encoded images.
package benchmark

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-yolo-ffi/detector"
)

// Detector is the part of detector.Model a benchmark drives.
type Detector interface {
	Detect(image []byte, conf, iou float32) ([]detector.Detection, error)
}

// Scenario defines a specific test configuration.
type Scenario struct {
	Name       string  `json:"name"`
	Iterations int     `json:"iterations"`
	WarmupRuns int     `json:"warmup_runs"`
	Confidence float32 `json:"confidence"`
	IoU        float32 `json:"iou"`
}

// PerformanceMetrics captures the results of one scenario.
type PerformanceMetrics struct {
	Scenario        Scenario      `json:"scenario"`
	Timestamp       time.Time     `json:"timestamp"`
	TotalDuration   time.Duration `json:"total_duration"`
	MinLatency      time.Duration `json:"min_latency"`
	MeanLatency     time.Duration `json:"mean_latency"`
	P50Latency      time.Duration `json:"p50_latency"`
	P95Latency      time.Duration `json:"p95_latency"`
	MaxLatency      time.Duration `json:"max_latency"`
	FramesPerSecond float64       `json:"frames_per_second"`
	DetectionCount  int           `json:"detection_count"`
	ErrorRate       float64       `json:"error_rate"`
	MemoryStats     MemoryMetrics `json:"memory_stats"`
	NumCPU          int           `json:"num_cpu"`
}

// MemoryMetrics captures memory usage statistics.
type MemoryMetrics struct {
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
}

// RunScenario cycles through images for the configured iterations after the
// warmup runs. Failed runs count toward ErrorRate; warmup failures are ignored.
// Cancelling ctx stops between iterations.
func RunScenario(ctx context.Context, d Detector, images [][]byte, scenario Scenario) (*PerformanceMetrics, error) {
	if len(images) == 0 {
		return nil, errors.Errorf("scenario %q has no images", scenario.Name)
	}
	if scenario.Iterations <= 0 {
		return nil, errors.Errorf("scenario %q needs at least one iteration", scenario.Name)
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		_, _ = d.Detect(images[i%len(images)], scenario.Confidence, scenario.IoU)
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	metrics := &PerformanceMetrics{Scenario: scenario, Timestamp: time.Now(), NumCPU: runtime.NumCPU()}
	latencies := make([]time.Duration, 0, scenario.Iterations)
	failures := 0

	start := time.Now()
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t0 := time.Now()
		dets, err := d.Detect(images[i%len(images)], scenario.Confidence, scenario.IoU)
		latencies = append(latencies, time.Since(t0))
		if err != nil {
			failures++
			continue
		}
		metrics.DetectionCount += len(dets)
	}
	metrics.TotalDuration = time.Since(start)

	var endMem runtime.MemStats
	runtime.ReadMemStats(&endMem)

	metrics.FramesPerSecond = float64(scenario.Iterations) / metrics.TotalDuration.Seconds()
	metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)
	metrics.MemoryStats = MemoryMetrics{
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		HeapAllocBytes:  endMem.HeapAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
	}
	summarize(metrics, latencies)
	return metrics, nil
}

func summarize(m *PerformanceMetrics, latencies []time.Duration) {
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var total time.Duration
	for _, l := range latencies {
		total += l
	}
	n := len(latencies)
	m.MinLatency = latencies[0]
	m.MaxLatency = latencies[n-1]
	m.MeanLatency = total / time.Duration(n)
	m.P50Latency = percentile(latencies, 0.50)
	m.P95Latency = percentile(latencies, 0.95)
}

// percentile uses the nearest-rank method on sorted values.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(p*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

// String renders a one-line summary.
func (m *PerformanceMetrics) String() string {
	return fmt.Sprintf("%s: %d runs in %s (%.1f fps) p50=%s p95=%s detections=%d errors=%.0f%%",
		m.Scenario.Name, m.Scenario.Iterations, m.TotalDuration.Round(time.Millisecond),
		m.FramesPerSecond, m.P50Latency.Round(time.Microsecond), m.P95Latency.Round(time.Microsecond),
		m.DetectionCount, m.ErrorRate*100)
}
