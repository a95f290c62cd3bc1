package queue

import (
	"time"
)

// Priority orders jobs within a queue. Higher priorities are processed
// ahead of lower ones; jobs in the same tier run FIFO.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// priorityRank maps priorities to sort ranks; lower rank runs first.
var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityNormal:   2,
	PriorityLow:      3,
}

func (p Priority) rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return priorityRank[PriorityNormal]
}

// BackoffType selects how the retry delay grows between attempts
type BackoffType string

const (
	BackoffExponential BackoffType = "exponential"
	BackoffFixed       BackoffType = "fixed"
)

// Backoff describes the delay policy between retry attempts
type Backoff struct {
	Type     BackoffType
	Delay    time.Duration // base delay
	MaxDelay time.Duration // cap for exponential growth; 0 means uncapped
}

// NextDelay computes the delay before the retry following the given
// number of completed attempts. Exponential backoff doubles the base
// delay per attempt and is non-decreasing up to MaxDelay.
func (b Backoff) NextDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if b.Type == BackoffFixed {
		return b.Delay
	}
	delay := b.Delay << uint(attempts-1)
	if delay < b.Delay {
		// shift overflow
		delay = b.MaxDelay
	}
	if b.MaxDelay > 0 && delay > b.MaxDelay {
		delay = b.MaxDelay
	}
	return delay
}

// Options control scheduling and retry behaviour of a job
type Options struct {
	Delay    time.Duration // delay before the job first becomes runnable
	Attempts int           // max attempts; 0 uses the queue default
	Backoff  Backoff       // retry delay policy; zero value uses the queue default
	Priority Priority      // defaults to PriorityNormal
}

// Job is a transient work item. Jobs live only in process memory:
// delivery is at-most-once and pending jobs are lost on restart.
type Job struct {
	ID          string
	Queue       string
	Type        string
	Payload     map[string]any
	Priority    Priority
	Attempts    int // attempts made so far
	MaxAttempts int
	Backoff     Backoff
	ReadyAt     time.Time // earliest time the job may run
	LastError   string
	CreatedAt   time.Time

	seq uint64 // insertion order, for FIFO within a priority tier
}
