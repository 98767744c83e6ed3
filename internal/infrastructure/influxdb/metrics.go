package influxdb

import (
	"math/bits"
	"time"

	"github.com/nerrad567/thermlog/internal/participantlog"
	"github.com/nerrad567/thermlog/internal/sampler"
)

// Measurement names.
const (
	MeasurementEngineTick  = "engine_tick"
	MeasurementSamplerTick = "sampler_tick"
)

// ObserveTick records one poll tick. It implements participantlog.TickObserver.
func (c *Client) ObserveTick(stats participantlog.TickStats) {
	c.writePoint(MeasurementEngineTick,
		map[string]string{"failed": stats.FailedRoutes.String()},
		map[string]any{
			"duration_ms":   millis(stats.Duration),
			"wait_ms":       millis(stats.Wait),
			"overrun":       stats.Overrun,
			"entries":       stats.Entries,
			"header_routes": bits.OnesCount32(uint32(stats.HeaderRoutes)),
			"row_routes":    bits.OnesCount32(uint32(stats.RowRoutes)),
			"failed_routes": bits.OnesCount32(uint32(stats.FailedRoutes)),
			"pull_failures": stats.PullFailures,
			"skipped":       stats.Skipped,
		},
		stats.Start)
}

// ObserveSample records one sampler tick. It implements sampler.SampleObserver.
func (c *Client) ObserveSample(stats sampler.SampleStats) {
	c.writePoint(MeasurementSamplerTick, nil,
		map[string]any{
			"duration_ms": millis(stats.Duration),
			"sources":     stats.Sources,
			"failed":      stats.Failed,
			"locked":      stats.Locked,
		},
		stats.Start)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

var (
	_ participantlog.TickObserver = (*Client)(nil)
	_ sampler.SampleObserver      = (*Client)(nil)
)
