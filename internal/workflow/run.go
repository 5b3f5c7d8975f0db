// Package workflow orchestrates a brand intelligence run: fan-out over
// data sources, sentiment analysis over what they return, persistence,
// and a final report. Individual source failures degrade the report but
// never fail the run.
package workflow

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brandpulse-ai/brandpulse/internal/types"
)

// RunStatus represents the lifecycle state of a run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// SlotValue is the outcome of one gathering task. Exactly one of Value
// or Err is meaningful: a task that exhausted its retries records the
// final error string instead of data.
type SlotValue struct {
	Value string `json:"value,omitempty"`
	Err   string `json:"error,omitempty"`
}

// Failed reports whether the slot holds an error instead of data.
func (s SlotValue) Failed() bool {
	return s.Err != ""
}

// Run is the mutable state of one orchestration. Slots are write-once:
// each task owns exactly one slot name and writes its outcome exactly
// once, so readers after the phase barrier see a consistent snapshot.
type Run struct {
	ID          types.ID   `json:"id"`
	Subject     string     `json:"subject"`
	Status      RunStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	mu     sync.Mutex
	slots  map[string]SlotValue
	phases []string
}

func newRun(subject string, now time.Time) *Run {
	return &Run{
		ID:        types.NewID(),
		Subject:   subject,
		Status:    RunStatusPending,
		CreatedAt: now,
		slots:     make(map[string]SlotValue),
	}
}

// setSlot records a task outcome. A second write to the same slot is a
// programming error and panics rather than silently overwriting.
func (r *Run) setSlot(name string, value SlotValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.slots[name]; exists {
		panic(fmt.Sprintf("slot %q written twice", name))
	}
	r.slots[name] = value
}

// markPhase records a completed phase, in execution order.
func (r *Run) markPhase(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, name)
}

// Phases returns the completed phases in execution order.
func (r *Run) Phases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.phases...)
}

// Slot returns the value recorded under name.
func (r *Run) Slot(name string) (SlotValue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.slots[name]
	return v, ok
}

// SlotNames returns all recorded slot names in sorted order.
func (r *Run) SlotNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.slots))
	for name := range r.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Slots returns a copy of the slot map.
func (r *Run) Slots() map[string]SlotValue {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]SlotValue, len(r.slots))
	for name, v := range r.slots {
		out[name] = v
	}
	return out
}

// CollectedText concatenates the data of all successful slots whose
// names carry the given prefix, in sorted slot-name order.
func (r *Run) CollectedText(prefix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.slots))
	for name := range r.slots {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var texts []string
	for _, name := range names {
		slot := r.slots[name]
		if slot.Failed() || slot.Value == "" {
			continue
		}
		for _, line := range strings.Split(slot.Value, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				texts = append(texts, line)
			}
		}
	}
	return texts
}

// TaskState tracks where a task is in its retry lifecycle.
type TaskState string

const (
	TaskStateScheduled TaskState = "scheduled"
	TaskStateExecuting TaskState = "executing"
	TaskStateRetrying  TaskState = "retrying"
	TaskStateSucceeded TaskState = "succeeded"
	TaskStateFailed    TaskState = "failed"
)
