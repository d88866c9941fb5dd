package loop

import (
	"context"
	"sync"
	"testing"
	"time"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := New(nil)
	l.Start(context.Background())
	t.Cleanup(l.Stop)
	return l
}

func TestPostRunsInOrder(t *testing.T) {
	l := startLoop(t)

	var got []int
	for i := range 100 {
		l.Post(func() { got = append(got, i) })
	}
	if err := l.Do(func() {}); err != nil {
		t.Fatal(err)
	}

	if len(got) != 100 {
		t.Fatalf("ran %d tasks, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestTasksNeverOverlap(t *testing.T) {
	l := startLoop(t)

	var (
		wg      sync.WaitGroup
		running int
		overlap bool
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				l.Post(func() {
					running++
					if running > 1 {
						overlap = true
					}
					running--
				})
			}
		}()
	}
	wg.Wait()
	_ = l.Do(func() {})

	if overlap {
		t.Error("two tasks ran concurrently")
	}
}

func TestPostFromTask(t *testing.T) {
	l := startLoop(t)

	done := make(chan struct{})
	l.Post(func() {
		l.Post(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested post never ran")
	}
}

func TestPanicDoesNotKillLoop(t *testing.T) {
	l := startLoop(t)

	l.Post(func() { panic("boom") })
	ran := false
	if err := l.Do(func() { ran = true }); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("task after panic did not run")
	}
}

func TestPostAfterStop(t *testing.T) {
	l := New(nil)
	l.Start(context.Background())
	l.Stop()

	if l.Post(func() {}) {
		t.Error("Post() after Stop = true, want false")
	}
	if err := l.Do(func() {}); err != ErrStopped {
		t.Errorf("Do() after Stop = %v, want ErrStopped", err)
	}
}
