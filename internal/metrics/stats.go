package metrics

import (
	"time"

	"github.com/eapache/queue"
)

// DefaultHistorySize is the number of steps in the padding moving average.
const DefaultHistorySize = 100

// Window accumulates timing and padding stats across multiple steps.
type Window struct {
	// HistorySize bounds the padding moving average; 0 means DefaultHistorySize.
	HistorySize int

	sequences  int
	data       time.Duration
	compute    time.Duration
	steps      int
	paddingSum float64

	history    *queue.Queue
	historySum float64
}

// Record adds a new measurement to the window.
func (w *Window) Record(batchSize int, dataTime, computeTime time.Duration, paddingRatio float64) {
	w.sequences += batchSize
	w.data += dataTime
	w.compute += computeTime
	w.steps++
	w.paddingSum += paddingRatio

	if w.history == nil {
		w.history = queue.New()
	}
	limit := w.HistorySize
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	w.history.Add(paddingRatio)
	w.historySum += paddingRatio
	for w.history.Length() > limit {
		w.historySum -= w.history.Remove().(float64)
	}
}

// Snapshot returns aggregated metrics and resets the window. The padding
// moving average survives the reset.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{}
	total := w.data + w.compute
	if total > 0 {
		snap.SequencesPerSec = float64(w.sequences) / total.Seconds()
	}
	if w.steps > 0 {
		snap.AvgDataMS = (w.data.Seconds() * 1000) / float64(w.steps)
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.steps)
		snap.AvgPaddingRatio = w.paddingSum / float64(w.steps)
	}
	if w.history != nil && w.history.Length() > 0 {
		snap.MovingPaddingRatio = w.historySum / float64(w.history.Length())
	}

	w.sequences = 0
	w.data = 0
	w.compute = 0
	w.steps = 0
	w.paddingSum = 0
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	SequencesPerSec    float64
	AvgDataMS          float64
	AvgComputeMS       float64
	AvgPaddingRatio    float64
	MovingPaddingRatio float64
}
