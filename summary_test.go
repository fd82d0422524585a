package qrbatch

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFailureSet(t *testing.T) {
	const total = 100
	fs := &failureSet{}
	var wg sync.WaitGroup
	for i := total - 1; i >= 0; i-- {
		if i%3 != 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fs.add(i, fmt.Sprintf("ID%03d", i), errors.New("failed"))
		}()
	}
	wg.Wait()

	s := fs.summarize(total)
	if s.Total != total || s.Failed != 34 || s.Succeeded != 66 {
		t.Errorf("got %d total, %d succeeded, %d failed", s.Total, s.Succeeded, s.Failed)
	}
	var want []string
	for i := 0; i < total; i += 3 {
		want = append(want, fmt.Sprintf("ID%03d", i))
	}
	if diff := cmp.Diff(want, s.FailedIDs()); diff != "" {
		t.Errorf("FailedIDs() mismatch (-want +got):\n%s", diff)
	}
}

func TestFailure(t *testing.T) {
	f := Failure{ID: "X001", Err: fmt.Errorf("%w: boom", ErrLabel)}
	if got, want := f.Error(), "X001: label error: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(f, ErrLabel) {
		t.Errorf("errors.Is(%v, ErrLabel) = false", f)
	}
}
