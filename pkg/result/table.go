package result

import (
	"sort"
	"sync"
)

// Outcome is the result of running one program image.
type Outcome struct {
	Name  string   `json:"name"`
	Final Snapshot `json:"final"`
	Err   string   `json:"error,omitempty"`
	Trace []Step   `json:"trace,omitempty"`
}

// OK reports whether the run finished without error.
func (o Outcome) OK() bool { return o.Err == "" }

// Table collects outcomes from concurrent runs.
type Table struct {
	mu       sync.Mutex
	outcomes []Outcome
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// Add inserts an outcome into the table.
func (t *Table) Add(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes = append(t.outcomes, o)
}

// Outcomes returns a copy of all outcomes, sorted by name.
func (t *Table) Outcomes() []Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]Outcome, len(t.outcomes))
	copy(result, t.outcomes)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Failed returns the number of outcomes carrying an error.
func (t *Table) Failed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, o := range t.outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}

// Len returns the number of outcomes.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.outcomes)
}
