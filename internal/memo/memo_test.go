package memo

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGetLoadsOnce(t *testing.T) {
	var m Map[string, int]

	var calls int

	for range 3 {
		v, err := m.Get("a", func() (int, error) {
			calls++
			return 42, nil
		})
		if err != nil {
			t.Fatalf("Get: %v", err)
		}

		if v != 42 {
			t.Fatalf("Get = %d; want 42", v)
		}
	}

	if calls != 1 {
		t.Fatalf("load called %d times; want 1", calls)
	}
}

func TestGetConcurrentFirstCallsLoadOnce(t *testing.T) {
	var m Map[string, int]

	var calls atomic.Int32

	start := make(chan struct{})

	var wg sync.WaitGroup

	for range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			<-start

			v, err := m.Get("voice", func() (int, error) {
				calls.Add(1)
				return 7, nil
			})
			if err != nil || v != 7 {
				t.Errorf("Get = (%d, %v); want (7, nil)", v, err)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("load called %d times; want 1", got)
	}
}

func TestGetCachesErrors(t *testing.T) {
	var m Map[string, int]

	boom := errors.New("boom")

	var calls int

	for range 2 {
		_, err := m.Get("bad", func() (int, error) {
			calls++
			return 0, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Get error = %v; want %v", err, boom)
		}
	}

	if calls != 1 {
		t.Fatalf("load called %d times; want 1 (sticky failure)", calls)
	}
}

func TestRangeSkipsFailedLoads(t *testing.T) {
	var m Map[string, int]

	_, _ = m.Get("x", func() (int, error) { return 1, nil })
	_, _ = m.Get("y", func() (int, error) { return 0, errors.New("nope") })

	seen := map[string]int{}
	m.Range(func(k string, v int) { seen[k] = v })

	if len(seen) != 1 || seen["x"] != 1 {
		t.Fatalf("Range saw %v; want only x=1", seen)
	}
}

func TestGetPanickingLoadIsStickyError(t *testing.T) {
	var m Map[string, int]

	var calls int

	load := func() (int, error) {
		calls++
		panic("bad model")
	}

	_, first := m.Get("a", load)
	if first == nil {
		t.Fatal("Get after a panicking load returned no error")
	}

	_, second := m.Get("a", load)
	if second == nil || second.Error() != first.Error() {
		t.Fatalf("second Get error = %v; want %v", second, first)
	}

	if calls != 1 {
		t.Fatalf("load called %d times; want 1", calls)
	}

	m.Range(func(k string, _ int) { t.Errorf("Range visited failed key %q", k) })
}
