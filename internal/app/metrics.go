package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks playback counters and main loop timing.
type Metrics struct {
	// Frame timing
	frameCount   atomic.Uint64
	frameTotalNs atomic.Int64
	frameMaxNs   atomic.Int64
	lastFrameNs  atomic.Int64

	// Playback
	sessionsStarted  atomic.Uint64
	sessionsFinished atomic.Uint64
	sessionsCanceled atomic.Uint64
	triggersDropped  atomic.Uint64
	keysEmitted      atomic.Uint64
	keysDropped      atomic.Uint64

	// Store
	reloads      atomic.Uint64
	reloadErrors atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordFrame records main loop iteration timing.
func (m *Metrics) RecordFrame(duration time.Duration) {
	ns := duration.Nanoseconds()

	m.frameCount.Add(1)
	m.frameTotalNs.Add(ns)
	m.lastFrameNs.Store(ns)

	for {
		old := m.frameMaxNs.Load()
		if ns <= old {
			break
		}
		if m.frameMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordSessionStarted counts a session start.
func (m *Metrics) RecordSessionStarted() { m.sessionsStarted.Add(1) }

// RecordSessionFinished counts a session end.
func (m *Metrics) RecordSessionFinished(cancelled bool) {
	m.sessionsFinished.Add(1)
	if cancelled {
		m.sessionsCanceled.Add(1)
	}
}

// RecordTriggerDropped counts a trigger ignored while a session was active.
func (m *Metrics) RecordTriggerDropped() { m.triggersDropped.Add(1) }

// RecordKeys counts keys delivered to outputs.
func (m *Metrics) RecordKeys(n int) { m.keysEmitted.Add(uint64(n)) }

// RecordKeysDropped counts keys the queue rejected.
func (m *Metrics) RecordKeysDropped(n int) { m.keysDropped.Add(uint64(n)) }

// RecordReload counts an image reload attempt.
func (m *Metrics) RecordReload(err error) {
	if err != nil {
		m.reloadErrors.Add(1)
		return
	}
	m.reloads.Add(1)
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	frameCount := m.frameCount.Load()
	var avgFrameNs int64
	if frameCount > 0 {
		avgFrameNs = m.frameTotalNs.Load() / int64(frameCount)
	}

	return MetricsSnapshot{
		Uptime:           time.Since(m.startTime),
		FrameCount:       frameCount,
		AvgFrameTimeNs:   avgFrameNs,
		MaxFrameTimeNs:   m.frameMaxNs.Load(),
		LastFrameNs:      m.lastFrameNs.Load(),
		SessionsStarted:  m.sessionsStarted.Load(),
		SessionsFinished: m.sessionsFinished.Load(),
		SessionsCanceled: m.sessionsCanceled.Load(),
		TriggersDropped:  m.triggersDropped.Load(),
		KeysEmitted:      m.keysEmitted.Load(),
		KeysDropped:      m.keysDropped.Load(),
		Reloads:          m.reloads.Load(),
		ReloadErrors:     m.reloadErrors.Load(),
	}
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime           time.Duration
	FrameCount       uint64
	AvgFrameTimeNs   int64
	MaxFrameTimeNs   int64
	LastFrameNs      int64
	SessionsStarted  uint64
	SessionsFinished uint64
	SessionsCanceled uint64
	TriggersDropped  uint64
	KeysEmitted      uint64
	KeysDropped      uint64
	Reloads          uint64
	ReloadErrors     uint64
}

// AvgFrameTime returns the mean time spent in one main loop iteration.
func (s MetricsSnapshot) AvgFrameTime() time.Duration {
	return time.Duration(s.AvgFrameTimeNs)
}
