package keyqueue

import (
	"sync"
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	q := New(4)

	for _, k := range []uint8{4, 5, 6} {
		if !q.Push(k) {
			t.Fatalf("Push(%d) dropped", k)
		}
	}
	if q.Len() != 3 {
		t.Errorf("Len() = %d, want 3", q.Len())
	}

	for _, want := range []uint8{4, 5, 6} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Errorf("Pop() = %d, %v, want %d, true", got, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on empty queue should return false")
	}
}

func TestQueueWrapAround(t *testing.T) {
	q := New(3)
	q.Push(1)
	q.Push(2)
	q.Pop()
	q.Push(3)
	q.Push(4)

	got := q.Drain()
	want := []uint8{2, 3, 4}
	if string(got) != string(want) {
		t.Errorf("Drain() = %v, want %v", got, want)
	}
	if q.Len() != 0 {
		t.Errorf("Len() after Drain = %d, want 0", q.Len())
	}
	if q.Drain() != nil {
		t.Error("Drain() on empty queue should return nil")
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := New(2)
	q.Push(1)
	q.Push(2)
	if q.Push(3) {
		t.Error("Push on full queue should report a drop")
	}

	st := q.Stats()
	if st.Pushed != 2 || st.Dropped != 1 || st.Pending != 2 {
		t.Errorf("Stats() = %+v, want pushed 2, dropped 1, pending 2", st)
	}
	if got := q.Drain(); string(got) != string([]uint8{1, 2}) {
		t.Errorf("Drain() = %v, want [1 2]", got)
	}
}

func TestQueueDefaultCapacity(t *testing.T) {
	if got := New(0).Cap(); got != DefaultCapacity {
		t.Errorf("New(0).Cap() = %d, want %d", got, DefaultCapacity)
	}
}

func TestQueueConcurrent(t *testing.T) {
	q := New(1000)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(uint8(j))
			}
		}()
	}
	wg.Wait()

	if q.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", q.Len())
	}
}
