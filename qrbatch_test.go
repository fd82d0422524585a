package qrbatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/corona10/goimagehash"
	"github.com/google/go-cmp/cmp"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "out", "nested")
	b, err := New(WithDest(dest), WithPrefix("WH"))
	if err != nil {
		t.Fatal(err)
	}
	s, err := b.Run(ctx, []string{"X001", "X002"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 2 || s.Succeeded != 2 || s.Failed != 0 {
		t.Errorf("got %+v", s)
	}
	if got := s.String(); got != "2 succeeded, 0 failed" {
		t.Errorf("String() = %q", got)
	}
	for _, id := range []string{"X001", "X002"} {
		got, err := Decode(filepath.Join(dest, id+".png"))
		if err != nil {
			t.Fatal(err)
		}
		if want := "WH/" + id; got != want {
			t.Errorf("decoded %q, want %q", got, want)
		}
	}
}

func TestRunPartialFailure(t *testing.T) {
	ctx := context.Background()
	dest := t.TempDir()
	b, err := New(WithDest(dest))
	if err != nil {
		t.Fatal(err)
	}
	tooLong := strings.Repeat("x", 4000)
	s, err := b.Run(ctx, []string{"X001", tooLong})
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 2 || s.Succeeded != 1 || s.Failed != 1 {
		t.Errorf("got %+v", s)
	}
	if got := s.String(); got != "1 succeeded, 1 failed" {
		t.Errorf("String() = %q", got)
	}
	if !errors.Is(s.Failures[0].Err, ErrSynthesis) {
		t.Errorf("got %v, want %v", s.Failures[0].Err, ErrSynthesis)
	}
	if _, err := os.Stat(filepath.Join(dest, "X001.png")); err != nil {
		t.Error(err)
	}
	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries in %s, want 1", len(entries), dest)
	}
}

func TestRunFailuresAreInInputOrder(t *testing.T) {
	ctx := context.Background()
	dest := t.TempDir()
	b, err := New(WithDest(dest), WithConcurrency(0))
	if err != nil {
		t.Fatal(err)
	}
	ids := []string{"a/1", "ok1", "..", "ok2", `b\2`}
	s, err := b.Run(ctx, ids)
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != len(ids) || s.Succeeded+s.Failed != s.Total {
		t.Errorf("got %+v", s)
	}
	want := []string{"a/1", "..", `b\2`}
	if diff := cmp.Diff(want, s.FailedIDs()); diff != "" {
		t.Errorf("FailedIDs() mismatch (-want +got):\n%s", diff)
	}
	for _, f := range s.Failures {
		if !errors.Is(f, ErrSynthesis) {
			t.Errorf("got %v, want %v", f, ErrSynthesis)
		}
	}
}

func TestRunConcurrency(t *testing.T) {
	var ids []string
	for i := range 20 {
		ids = append(ids, fmt.Sprintf("ID%03d", i))
	}
	ids = append(ids, strings.Repeat("y", 4000))

	for _, c := range []int{1, 3, DefaultConcurrency, 0, -1} {
		t.Run(fmt.Sprintf("concurrency %d", c), func(t *testing.T) {
			b, err := New(WithDest(t.TempDir()), WithConcurrency(c))
			if err != nil {
				t.Fatal(err)
			}
			s, err := b.Run(context.Background(), ids)
			if err != nil {
				t.Fatal(err)
			}
			if s.Total != 21 || s.Succeeded != 20 || s.Failed != 1 {
				t.Errorf("got %+v", s)
			}
		})
	}
}

func TestRunTwice(t *testing.T) {
	ctx := context.Background()
	dest := t.TempDir()
	b, err := New(WithDest(dest), WithPrefix("WH"))
	if err != nil {
		t.Fatal(err)
	}
	ids := []string{"X001", "X002", "X001"}
	first, err := b.Run(ctx, ids)
	if err != nil {
		t.Fatal(err)
	}
	hash1 := pHash(t, filepath.Join(dest, "X001.png"))

	second, err := b.Run(ctx, ids)
	if err != nil {
		t.Fatal(err)
	}
	hash2 := pHash(t, filepath.Join(dest, "X001.png"))

	if first.Succeeded != second.Succeeded || first.Failed != second.Failed {
		t.Errorf("first %+v, second %+v", first, second)
	}
	if first.Succeeded != 3 {
		t.Errorf("got %+v", first)
	}
	distance, err := hash1.Distance(hash2)
	if err != nil {
		t.Fatal(err)
	}
	if distance != 0 {
		t.Errorf("artifacts differ between runs: distance %d", distance)
	}
}

func TestRunWithLabel(t *testing.T) {
	ctx := context.Background()
	plain := t.TempDir()
	labeled := t.TempDir()
	ids := []string{"X001", "X002"}

	b, err := New(WithDest(plain), WithPrefix("WH"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Run(ctx, ids); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFont(WithBasicFont())
	if err != nil {
		t.Fatal(err)
	}
	lb, err := New(WithDest(labeled), WithPrefix("WH"), WithLabel(true), WithFont(f))
	if err != nil {
		t.Fatal(err)
	}
	s, err := lb.Run(ctx, ids)
	if err != nil {
		t.Fatal(err)
	}
	if s.Succeeded != 2 || s.Failed != 0 {
		t.Errorf("got %+v", s)
	}
	for _, id := range ids {
		a, err := os.ReadFile(filepath.Join(plain, id+".png"))
		if err != nil {
			t.Fatal(err)
		}
		l, err := os.ReadFile(filepath.Join(labeled, id+".png"))
		if err != nil {
			t.Fatal(err)
		}
		if string(a) == string(l) {
			t.Errorf("%s: label was not drawn", id)
		}
		got, err := Decode(filepath.Join(labeled, id+".png"))
		if err != nil {
			t.Fatal(err)
		}
		if want := "WH/" + id; got != want {
			t.Errorf("decoded %q, want %q", got, want)
		}
	}
}

func TestRunWithDefaultFont(t *testing.T) {
	b, err := New(WithDest(t.TempDir()), WithLabel(true))
	if err != nil {
		t.Fatal(err)
	}
	s, err := b.Run(context.Background(), []string{"X001"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Succeeded != 1 {
		t.Errorf("got %+v", s)
	}
}

func TestRunConcurrentlyWithDefaultFont(t *testing.T) {
	ctx := context.Background()
	b, err := New(WithDest(t.TempDir()), WithLabel(true), WithFontOptions(WithBasicFont()))
	if err != nil {
		t.Fatal(err)
	}
	ids := []string{"X001", "X002"}
	summaries := make([]*Summary, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range summaries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summaries[i], errs[i] = b.Run(ctx, ids)
		}()
	}
	wg.Wait()
	for i := range summaries {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		if summaries[i].Succeeded != 2 || summaries[i].Failed != 0 {
			t.Errorf("got %+v", summaries[i])
		}
	}
	if b.font != nil {
		t.Error("Run should not store the loaded font on the Batch")
	}
}

func TestRunFontLoadError(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out")
	b, err := New(WithDest(dest), WithLabel(true), WithFontOptions(WithFontFile(filepath.Join(dir, "missing.ttf"))))
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Run(context.Background(), []string{"X001"})
	if !errors.Is(err, ErrFontLoad) {
		t.Fatalf("got %v, want %v", err, ErrFontLoad)
	}
	if _, err := os.Stat(filepath.Join(dest, "X001.png")); !os.IsNotExist(err) {
		t.Error("no artifact should be generated when the font cannot be loaded")
	}
}

func TestRunDirectoryError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := New(WithDest(filepath.Join(file, "out")))
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Run(context.Background(), []string{"X001"})
	if !errors.Is(err, ErrDirectory) {
		t.Errorf("got %v, want %v", err, ErrDirectory)
	}
	if !IsFatal(err) {
		t.Errorf("IsFatal(%v) = false", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"dest", []Option{WithDest("out")}, false},
		{"no dest", nil, true},
		{"negative size", []Option{WithDest("out"), WithSize(-1)}, true},
		{"invalid recovery level", []Option{WithDest("out"), WithRecoveryLevel("Z")}, true},
		{"all options", []Option{WithDest("out"), WithPrefix("WH"), WithLabel(true), WithSize(200), WithRecoveryLevel(RecoveryHigh), WithConcurrency(2), WithLogger(nil)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	dest := t.TempDir()
	b, err := New(WithDest(dest), WithPrefix("WH"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Run(ctx, []string{"X001", "X002"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		prefix string
		ids    []string
		want   []string
	}{
		{"all match", "WH", []string{"X001", "X002"}, []string{}},
		{"wrong prefix", "XX", []string{"X001", "X002"}, []string{"X001", "X002"}},
		{"missing artifact", "WH", []string{"X001", "X003"}, []string{"X003"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vb, err := New(WithDest(dest), WithPrefix(tt.prefix))
			if err != nil {
				t.Fatal(err)
			}
			s, err := vb.Verify(ctx, tt.ids)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, s.FailedIDs()); diff != "" {
				t.Errorf("FailedIDs() mismatch (-want +got):\n%s", diff)
			}
			for _, f := range s.Failures {
				if !errors.Is(f.Err, ErrVerify) {
					t.Errorf("got %v, want %v", f.Err, ErrVerify)
				}
			}
		})
	}
}

func TestVerifyMissingDest(t *testing.T) {
	b, err := New(WithDest(filepath.Join(t.TempDir(), "missing")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Verify(context.Background(), []string{"X001"}); !errors.Is(err, ErrDirectory) {
		t.Errorf("got %v, want %v", err, ErrDirectory)
	}
}

func pHash(t *testing.T, path string) *goimagehash.ImageHash {
	t.Helper()
	h, err := goimagehash.PerceptionHash(readPNG(t, path))
	if err != nil {
		t.Fatal(err)
	}
	return h
}
