package app

import (
	"errors"
	"testing"
	"time"
)

func TestMetrics_RecordFrame(t *testing.T) {
	m := NewMetrics()

	m.RecordFrame(10 * time.Millisecond)
	m.RecordFrame(20 * time.Millisecond)
	m.RecordFrame(6 * time.Millisecond)

	s := m.Snapshot()
	if s.FrameCount != 3 {
		t.Errorf("FrameCount = %d, want 3", s.FrameCount)
	}
	if s.MaxFrameTimeNs != int64(20*time.Millisecond) {
		t.Errorf("MaxFrameTimeNs = %d, want 20ms", s.MaxFrameTimeNs)
	}
	if s.LastFrameNs != int64(6*time.Millisecond) {
		t.Errorf("LastFrameNs = %d, want 6ms", s.LastFrameNs)
	}
	if got := s.AvgFrameTime(); got != 12*time.Millisecond {
		t.Errorf("AvgFrameTime() = %v, want 12ms", got)
	}
}

func TestMetrics_Playback(t *testing.T) {
	m := NewMetrics()

	m.RecordSessionStarted()
	m.RecordSessionStarted()
	m.RecordSessionFinished(false)
	m.RecordSessionFinished(true)
	m.RecordTriggerDropped()
	m.RecordKeys(5)
	m.RecordKeysDropped(2)
	m.RecordReload(nil)
	m.RecordReload(errors.New("bad image"))

	s := m.Snapshot()
	checks := []struct {
		name string
		got  uint64
		want uint64
	}{
		{"SessionsStarted", s.SessionsStarted, 2},
		{"SessionsFinished", s.SessionsFinished, 2},
		{"SessionsCanceled", s.SessionsCanceled, 1},
		{"TriggersDropped", s.TriggersDropped, 1},
		{"KeysEmitted", s.KeysEmitted, 5},
		{"KeysDropped", s.KeysDropped, 2},
		{"Reloads", s.Reloads, 1},
		{"ReloadErrors", s.ReloadErrors, 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestMetrics_EmptySnapshot(t *testing.T) {
	s := NewMetrics().Snapshot()
	if s.FrameCount != 0 || s.AvgFrameTime() != 0 {
		t.Errorf("empty snapshot = %+v", s)
	}
}
