package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Progress tracks the counters of a single run.
// It provides thread-safe access to progress metrics for UI updates.
type Progress struct {
	total        int
	completed    int
	successful   int
	failed       int
	retries      int
	totalChunks  int
	currentChunk int

	startTime time.Time
	now       func() time.Time

	// mu protects concurrent access to progress fields.
	mu sync.RWMutex
}

// ProgressSnapshot is an immutable copy of progress state.
//
// Completed is always Successful + Failed. EstimatedRemaining is nil until the
// first item completes. CurrentChunk is 1-based; it is 0 before the first chunk.
type ProgressSnapshot struct {
	Total              int
	Completed          int
	Successful         int
	Failed             int
	Percentage         float64
	EstimatedRemaining *time.Duration
	CurrentChunk       int
	TotalChunks        int
	Elapsed            time.Duration
}

// NewProgress creates a new progress tracker starting now.
func NewProgress(total, totalChunks int) *Progress {
	return newProgressWithClock(total, totalChunks, time.Now)
}

func newProgressWithClock(total, totalChunks int, now func() time.Time) *Progress {
	return &Progress{
		total:       total,
		totalChunks: totalChunks,
		startTime:   now(),
		now:         now,
	}
}

// StartChunk marks chunkIndex (0-based) as the chunk in flight.
func (p *Progress) StartChunk(chunkIndex int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentChunk = chunkIndex + 1
}

// Record counts one resolved item and returns the updated snapshot.
func (p *Progress) Record(success bool, attempts int) ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed++
	if success {
		p.successful++
	} else {
		p.failed++
	}
	if attempts > 1 {
		p.retries += attempts - 1
	}
	return p.snapshotLocked()
}

// Snapshot returns a copy of the current progress state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// Retries returns the number of retry attempts made so far.
func (p *Progress) Retries() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.retries
}

func (p *Progress) snapshotLocked() ProgressSnapshot {
	elapsed := p.now().Sub(p.startTime)
	return ProgressSnapshot{
		Total:              p.total,
		Completed:          p.completed,
		Successful:         p.successful,
		Failed:             p.failed,
		Percentage:         p.percentCompleteLocked(),
		EstimatedRemaining: p.estimateLocked(elapsed),
		CurrentChunk:       p.currentChunk,
		TotalChunks:        p.totalChunks,
		Elapsed:            elapsed,
	}
}

func (p *Progress) percentCompleteLocked() float64 {
	if p.total == 0 {
		return 0
	}
	return (float64(p.completed) / float64(p.total)) * percentMultiplier
}

func (p *Progress) estimateLocked(elapsed time.Duration) *time.Duration {
	if p.completed == 0 {
		return nil
	}
	avgPerItem := elapsed / time.Duration(p.completed)
	remaining := avgPerItem * time.Duration(p.total-p.completed)
	return &remaining
}
