package crawl

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stepRunner reports when a job starts and blocks it until released.
type stepRunner struct {
	started chan string
	release chan struct{}
}

func (r *stepRunner) run(_ context.Context, p Payload, onProgress func(Progress)) (*Done, error) {
	r.started <- p.StorageKey
	onProgress(Progress{Phase: PhaseProcessing})
	<-r.release
	return &Done{Added: 1}, nil
}

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("stream closed early")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func waitClosed(t *testing.T, ch <-chan Event) {
	t.Helper()
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-time.After(5 * time.Second):
			t.Fatal("stream not closed")
		}
	}
}

func TestQueueFIFO(t *testing.T) {
	r := &stepRunner{started: make(chan string), release: make(chan struct{})}
	q := NewQueue(r.run)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	_, ahead := q.Enqueue(Payload{StorageKey: "a"})
	if ahead != 0 {
		t.Errorf("first job ahead = %d, want 0", ahead)
	}
	if got := <-r.started; got != "a" {
		t.Fatalf("started %q first, want a", got)
	}

	_, ahead = q.Enqueue(Payload{StorageKey: "b"})
	if ahead != 1 {
		t.Errorf("second job ahead = %d, want 1", ahead)
	}
	jobC, ahead := q.Enqueue(Payload{StorageKey: "c"})
	if ahead != 2 {
		t.Errorf("third job ahead = %d, want 2", ahead)
	}

	ch, cancelSub, ok := q.Subscribe(jobC.ID)
	if !ok {
		t.Fatal("Subscribe failed for queued job")
	}
	defer cancelSub()

	ev := nextEvent(t, ch)
	if ev.Type != EventQueue || ev.Data.(QueueEvent).AheadCount != 2 {
		t.Errorf("attach event = %+v, want queue ahead 2", ev)
	}

	// Finish a; b starts and c moves up.
	r.release <- struct{}{}
	if got := <-r.started; got != "b" {
		t.Fatalf("started %q second, want b", got)
	}
	ev = nextEvent(t, ch)
	if ev.Type != EventQueue || ev.Data.(QueueEvent).AheadCount != 1 {
		t.Errorf("after first finish = %+v, want queue ahead 1", ev)
	}

	// Finish b; c runs and completes.
	r.release <- struct{}{}
	if got := <-r.started; got != "c" {
		t.Fatalf("started %q third, want c", got)
	}
	ev = nextEvent(t, ch)
	if ev.Type != EventQueue || ev.Data.(QueueEvent).AheadCount != 0 {
		t.Errorf("on start = %+v, want queue ahead 0", ev)
	}
	ev = nextEvent(t, ch)
	if ev.Type != EventProgress {
		t.Errorf("event = %+v, want progress", ev)
	}

	r.release <- struct{}{}
	ev = nextEvent(t, ch)
	if ev.Type != EventDone {
		t.Errorf("terminal event = %+v, want done", ev)
	}
	if d, ok := ev.Data.(*Done); !ok || d.Added != 1 {
		t.Errorf("done payload = %+v", ev.Data)
	}
	waitClosed(t, ch)
}

func TestSubscribeUnknownJob(t *testing.T) {
	q := NewQueue(func(context.Context, Payload, func(Progress)) (*Done, error) {
		return &Done{}, nil
	})
	if _, _, ok := q.Subscribe("no-such-job"); ok {
		t.Error("Subscribe accepted an unknown job id")
	}
}

func TestLateSubscriberGetsTerminalEvent(t *testing.T) {
	q := NewQueue(func(context.Context, Payload, func(Progress)) (*Done, error) {
		return &Done{Added: 3}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	job, _ := q.Enqueue(Payload{StorageKey: "a"})

	// Watch it to completion first.
	ch, cancelSub, ok := q.Subscribe(job.ID)
	if !ok {
		t.Fatal("Subscribe failed")
	}
	defer cancelSub()
	for {
		ev := nextEvent(t, ch)
		if ev.Type == EventDone {
			break
		}
	}

	late, _, ok := q.Subscribe(job.ID)
	if !ok {
		t.Fatal("late Subscribe failed")
	}
	ev := nextEvent(t, late)
	if ev.Type != EventDone {
		t.Errorf("late event = %+v, want done", ev)
	}
	if d, ok := ev.Data.(*Done); !ok || d.Added != 3 {
		t.Errorf("late done payload = %+v", ev.Data)
	}
	waitClosed(t, late)
}

func TestFailedJobEmitsError(t *testing.T) {
	q := NewQueue(func(context.Context, Payload, func(Progress)) (*Done, error) {
		return nil, errors.New("site unreachable")
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	job, _ := q.Enqueue(Payload{StorageKey: "a"})
	ch, cancelSub, ok := q.Subscribe(job.ID)
	if !ok {
		t.Fatal("Subscribe failed")
	}
	defer cancelSub()

	for {
		ev := nextEvent(t, ch)
		if ev.Type == EventError {
			if ev.Data.(ErrorEvent).Error != "site unreachable" {
				t.Errorf("error payload = %+v", ev.Data)
			}
			break
		}
	}
	waitClosed(t, ch)
}
