package obs

import (
	"sync/atomic"
	"time"

	"execgate/internal/model/enum"
)

// Metrics collects lightweight counters and latency stats for the ingest pipeline.
type Metrics struct {
	decoded        [enum.EventKindCount + 1]uint64
	decodeFailures uint64
	unroutable     uint64
	queueDrops     uint64
	journalErrors  uint64
	recordErrors   uint64

	dispatchLatency LatencyStats
	venueLatency    LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Decoded         map[enum.EventKind]uint64
	DecodeFailures  uint64
	Unroutable      uint64
	QueueDrops      uint64
	JournalErrors   uint64
	RecordErrors    uint64
	DispatchLatency LatencySnapshot
	VenueLatency    LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveDecoded counts a decoded event and, when both times are set, the delay between
// the venue timestamp and local receipt.
func (m *Metrics) ObserveDecoded(kind enum.EventKind, venueTime, receivedAt time.Time) {
	if m == nil {
		return
	}
	if idx := int(kind); idx >= 0 && idx < len(m.decoded) {
		atomic.AddUint64(&m.decoded[idx], 1)
	}
	if !venueTime.IsZero() && !receivedAt.IsZero() {
		m.venueLatency.Observe(receivedAt.Sub(venueTime))
	}
}

// IncDecodeFailure records a dropped malformed frame.
func (m *Metrics) IncDecodeFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.decodeFailures, 1)
}

// IncUnroutable records an event with no owning strategy.
func (m *Metrics) IncUnroutable() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.unroutable, 1)
}

// IncQueueDrop records a frame refused by a full or closed queue.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncJournalError records a failed journal write.
func (m *Metrics) IncJournalError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.journalErrors, 1)
}

// IncRecordError records a frame the recorder refused.
func (m *Metrics) IncRecordError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.recordErrors, 1)
}

// ObserveDispatch measures decode plus handler time of one frame.
func (m *Metrics) ObserveDispatch(d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	decoded := make(map[enum.EventKind]uint64)
	for i := range m.decoded {
		if v := atomic.LoadUint64(&m.decoded[i]); v > 0 {
			decoded[enum.EventKind(i)] = v
		}
	}
	return Snapshot{
		Decoded:         decoded,
		DecodeFailures:  atomic.LoadUint64(&m.decodeFailures),
		Unroutable:      atomic.LoadUint64(&m.unroutable),
		QueueDrops:      atomic.LoadUint64(&m.queueDrops),
		JournalErrors:   atomic.LoadUint64(&m.journalErrors),
		RecordErrors:    atomic.LoadUint64(&m.recordErrors),
		DispatchLatency: m.dispatchLatency.Snapshot(),
		VenueLatency:    m.venueLatency.Snapshot(),
	}
}

// Observe records a duration sample. Negative samples are ignored.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		cur := atomic.LoadUint64(&l.min)
		if cur != 0 && nanos >= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, cur, nanos) {
			break
		}
	}

	for {
		cur := atomic.LoadUint64(&l.max)
		if nanos <= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, cur, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(atomic.LoadUint64(&l.sum) / count),
	}
}
