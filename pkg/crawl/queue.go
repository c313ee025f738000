// Package crawl fetches finished matches from the source site, runs
// them through the analyzer and persists the resulting quizzes. Jobs go
// through a single-slot FIFO queue because the engine executable must
// not run concurrently.
package crawl

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// EventType tags the events streamed to job listeners.
type EventType string

const (
	EventQueue    EventType = "queue"
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one message on a listener stream.
type Event struct {
	Type EventType
	Data any
}

// QueueEvent reports how many jobs run before this one.
type QueueEvent struct {
	AheadCount int `json:"aheadCount"`
}

// ErrorEvent carries a terminal failure message.
type ErrorEvent struct {
	Error string `json:"error"`
}

// Credentials authenticate against the source site.
type Credentials struct {
	User     string
	Password string
}

// Payload describes one crawl job. StorageKey is the normalized user
// the results are stored under; UserID is the source-site account id
// and defaults to the login name.
type Payload struct {
	StorageKey  string
	Credentials Credentials
	UserID      string
	Days        int
}

// Job is a queued crawl. Fields beyond ID and Payload are owned by the
// queue.
type Job struct {
	ID      string
	Payload Payload

	status     Status
	aheadCount int
	final      *Event
	listeners  map[chan Event]struct{}
}

// Runner executes one job's pipeline, reporting progress as it goes.
type Runner func(ctx context.Context, payload Payload, onProgress func(Progress)) (*Done, error)

// Queue serializes crawl jobs: strictly FIFO, at most one running.
type Queue struct {
	runner Runner

	mu      sync.Mutex
	pending []*Job
	running *Job
	jobs    map[string]*Job

	wake chan struct{}
}

// NewQueue returns a queue executing jobs with the given runner. Call
// Start to begin draining it.
func NewQueue(runner Runner) *Queue {
	return &Queue{
		runner: runner,
		jobs:   make(map[string]*Job),
		wake:   make(chan struct{}, 1),
	}
}

// Start launches the drain loop; it exits when ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
			}
			for job := q.next(); job != nil; job = q.next() {
				q.run(ctx, job)
			}
		}
	}()
}

// Enqueue appends a job and returns it with the number of jobs ahead
// of it. Listeners of every queued job get a refreshed queue event.
func (q *Queue) Enqueue(p Payload) (*Job, int) {
	q.mu.Lock()
	job := &Job{
		ID:        uuid.NewString(),
		Payload:   p,
		status:    StatusQueued,
		listeners: make(map[chan Event]struct{}),
	}
	q.pending = append(q.pending, job)
	q.jobs[job.ID] = job
	q.refreshAheadLocked()
	ahead := job.aheadCount
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return job, ahead
}

// Subscribe attaches a listener to a job. The current state (queue
// position, or the terminal event for a finished job) is already on the
// channel when Subscribe returns; terminal events close it. The cancel
// function detaches a still-listening client without affecting the job.
func (q *Queue) Subscribe(jobID string) (<-chan Event, func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return nil, nil, false
	}

	ch := make(chan Event, 16)
	if job.final != nil {
		ch <- *job.final
		close(ch)
		return ch, func() {}, true
	}

	ch <- Event{Type: EventQueue, Data: QueueEvent{AheadCount: job.aheadCount}}
	job.listeners[ch] = struct{}{}

	cancel := func() {
		q.mu.Lock()
		if _, still := job.listeners[ch]; still {
			delete(job.listeners, ch)
			close(ch)
		}
		q.mu.Unlock()
	}
	return ch, cancel, true
}

// next pops the head of the queue, marks it running and refreshes the
// ahead counts of everything behind it.
func (q *Queue) next() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	job.status = StatusRunning
	job.aheadCount = 0
	q.running = job
	q.refreshAheadLocked()
	return job
}

func (q *Queue) run(ctx context.Context, job *Job) {
	q.publish(job, Event{Type: EventQueue, Data: QueueEvent{AheadCount: 0}})

	done, err := q.runner(ctx, job.Payload, func(p Progress) {
		q.publish(job, Event{Type: EventProgress, Data: p})
	})

	if err != nil {
		log.Printf("crawl: job %s failed: %v", job.ID, err)
		q.finish(job, StatusError, Event{Type: EventError, Data: ErrorEvent{Error: err.Error()}})
	} else {
		q.finish(job, StatusDone, Event{Type: EventDone, Data: done})
	}

	q.mu.Lock()
	q.running = nil
	q.mu.Unlock()
}

// refreshAheadLocked recomputes queue positions and tells every queued
// job's listeners. Callers hold q.mu.
func (q *Queue) refreshAheadLocked() {
	runningSlot := 0
	if q.running != nil {
		runningSlot = 1
	}
	for i, job := range q.pending {
		job.aheadCount = i + runningSlot
		ev := Event{Type: EventQueue, Data: QueueEvent{AheadCount: job.aheadCount}}
		for ch := range job.listeners {
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// publish sends an event to the job's listeners, dropping it for any
// listener whose buffer is full.
func (q *Queue) publish(job *Job, ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for ch := range job.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

// finish records the terminal event for late subscribers and closes all
// streams.
func (q *Queue) finish(job *Job, status Status, ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job.status = status
	job.final = &ev
	for ch := range job.listeners {
		select {
		case ch <- ev:
		default:
		}
		close(ch)
	}
	job.listeners = make(map[chan Event]struct{})
}
