package qrbatch

import (
	"fmt"
	"slices"
	"sync"
)

// Failure records an identifier whose unit of work failed.
type Failure struct {
	ID    string `json:"id"`
	Err   error  `json:"-"`
	index int
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.ID, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Summary is the result of a run, computed once every unit has finished.
type Summary struct {
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"failures,omitempty"`
}

func (s *Summary) String() string {
	return fmt.Sprintf("%d succeeded, %d failed", s.Succeeded, s.Failed)
}

// FailedIDs returns the failed identifiers in input order.
func (s *Summary) FailedIDs() []string {
	ids := make([]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		ids = append(ids, f.ID)
	}
	return ids
}

// failureSet is appended to concurrently by the units of a run.
type failureSet struct {
	mu       sync.Mutex
	failures []Failure
}

func (fs *failureSet) add(index int, id string, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failures = append(fs.failures, Failure{ID: id, Err: err, index: index})
}

func (fs *failureSet) summarize(total int) *Summary {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	failures := slices.Clone(fs.failures)
	slices.SortFunc(failures, func(a, b Failure) int {
		return a.index - b.index
	})
	return &Summary{
		Total:     total,
		Succeeded: total - len(failures),
		Failed:    len(failures),
		Failures:  failures,
	}
}
