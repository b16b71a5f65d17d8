package ioq

import (
	"errors"
	"math/rand"
	"runtime"
	"sync"
	"testing"
)

func TestScenarioCapacityFour(t *testing.T) {
	q := New[uint32](4)
	q.InitWriter()
	q.InitReader()

	assertEnqueue(t, q, 10, nil)
	assertEnqueue(t, q, 20, nil)
	assertEnqueue(t, q, 30, nil)
	assertEnqueue(t, q, 40, ErrBufferOverflow)
	assertDequeue(t, q, 10)
	assertEnqueue(t, q, 40, nil)
	assertDequeue(t, q, 20)
	assertDequeue(t, q, 30)
	assertDequeue(t, q, 40)
	if !q.IsEmpty() {
		t.Fatalf("queue should be empty, len=%d\n", q.Len())
	}
}

func TestWraparound(t *testing.T) {
	// 5 is not a power of two on purpose
	q := New[int](5)
	for round := 0; round < 7; round++ {
		for i := 0; i < q.Cap()-1; i++ {
			assertEnqueue(t, q, round*100+i, nil)
		}
		if !q.IsFull() {
			t.Fatalf("round %d: queue should be full\n", round)
		}
		assertEnqueue(t, q, -1, ErrBufferOverflow)
		for i := 0; i < q.Cap()-1; i++ {
			assertDequeue(t, q, round*100+i)
		}
		if !q.IsEmpty() {
			t.Fatalf("round %d: queue should be empty\n", round)
		}
		// shift the start index so that every round wraps at a new place
		assertEnqueue(t, q, 0, nil)
		assertDequeue(t, q, 0)
	}
}

func TestOverflowKeepsContents(t *testing.T) {
	q := New[uint8](3)
	assertEnqueue(t, q, 1, nil)
	assertEnqueue(t, q, 2, nil)
	for i := 0; i < 3; i++ {
		assertEnqueue(t, q, 99, ErrBufferOverflow)
	}
	if q.Len() != 2 {
		t.Fatalf("len=%d, expected 2\n", q.Len())
	}
	assertDequeue(t, q, 1)
	assertDequeue(t, q, 2)
}

func TestCapacityInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, capacity := range []int{2, 3, 4, 7, 16} {
		q := New[int](capacity)
		var model []int
		for step := 0; step < 2000; step++ {
			if q.IsFull() && q.IsEmpty() {
				t.Fatalf("cap %d step %d: both full and empty\n", capacity, step)
			}
			if q.Len() > capacity-1 {
				t.Fatalf("cap %d step %d: holds %d values\n", capacity, step, q.Len())
			}
			if r.Intn(2) == 0 {
				err := q.Enqueue(step)
				if len(model) == capacity-1 {
					if !errors.Is(err, ErrBufferOverflow) {
						t.Fatalf("cap %d step %d: expected overflow, got %v\n", capacity, step, err)
					}
					continue
				}
				if err != nil {
					t.Fatalf("cap %d step %d: %v\n", capacity, step, err)
				}
				model = append(model, step)
			} else if !q.IsEmpty() {
				v := q.Dequeue()
				if v != model[0] {
					t.Fatalf("cap %d step %d: got %d, expected %d\n", capacity, step, v, model[0])
				}
				model = model[1:]
			}
		}
	}
}

func TestDequeueEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("dequeue on an empty queue did not panic\n")
		}
	}()
	q := New[int](4)
	q.Dequeue()
}

func TestReset(t *testing.T) {
	q := New[int](4)
	assertEnqueue(t, q, 1, nil)
	assertEnqueue(t, q, 2, nil)
	q.Reset()
	if !q.IsEmpty() || q.Len() != 0 {
		t.Fatalf("queue not empty after reset\n")
	}
	assertEnqueue(t, q, 3, nil)
	assertDequeue(t, q, 3)
}

func TestSingleProducerSingleConsumer(t *testing.T) {
	const n = 20000
	q := New[uint32](7)
	var wg sync.WaitGroup
	wg.Add(2)
	done := make(chan struct{})
	go func() {
		defer wg.Done()
		for i := uint32(0); i < n; {
			select {
			case <-done:
				return
			default:
			}
			if q.Enqueue(i) == nil {
				i++
				continue
			}
			runtime.Gosched()
		}
	}()
	errc := make(chan error, 1)
	go func() {
		defer wg.Done()
		// the producer stops once the consumer gives up
		defer close(done)
		for want := uint32(0); want < n; {
			if q.IsEmpty() {
				runtime.Gosched()
				continue
			}
			if got := q.Dequeue(); got != want {
				errc <- errors.New("values out of order")
				return
			}
			want++
		}
	}()
	wg.Wait()
	select {
	case err := <-errc:
		t.Fatal(err.Error())
	default:
	}
	if !q.IsEmpty() {
		t.Fatalf("queue should be drained\n")
	}
}

// TestProducerStopsWhenConsumerQuits checks the shutdown path of the
// streaming test: a producer facing a full queue leaves once done closes.
func TestProducerStopsWhenConsumerQuits(t *testing.T) {
	q := New[uint32](2)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for i := uint32(0); ; {
			select {
			case <-done:
				return
			default:
			}
			if q.Enqueue(i) == nil {
				i++
				continue
			}
			runtime.Gosched()
		}
	}()
	for q.IsEmpty() {
		runtime.Gosched()
	}
	close(done)
	<-stopped
	if !q.IsFull() {
		t.Fatalf("producer left before filling the queue\n")
	}
}

func assertEnqueue[T comparable](t *testing.T, q *Queue[T], v T, expected error) {
	t.Helper()
	if err := q.Enqueue(v); !errors.Is(err, expected) {
		t.Fatalf("enqueue(%v) = %v, expected %v\n", v, err, expected)
	}
}

func assertDequeue[T comparable](t *testing.T, q *Queue[T], expected T) {
	t.Helper()
	if q.IsEmpty() {
		t.Fatalf("queue is empty, expected %v\n", expected)
	}
	if v := q.Dequeue(); v != expected {
		t.Fatalf("dequeue = %v, expected %v\n", v, expected)
	}
}
