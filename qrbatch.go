package qrbatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/k1LoW/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of identifiers processed at the same time.
const DefaultConcurrency = 8

// Batch generates one QR code image per identifier into a destination directory.
type Batch struct {
	dest        string
	prefix      string
	label       bool
	font        *Font
	fontOpts    []FontOption
	size        int
	level       RecoveryLevel
	concurrency int
	logger      *slog.Logger
}

type Option func(*Batch) error

// WithDest sets the destination directory. It is required.
func WithDest(dest string) Option {
	return func(b *Batch) error {
		b.dest = dest
		return nil
	}
}

// WithPrefix makes every payload "prefix/identifier".
func WithPrefix(prefix string) Option {
	return func(b *Batch) error {
		b.prefix = prefix
		return nil
	}
}

// WithLabel enables drawing the identifier under each QR code.
func WithLabel(enable bool) Option {
	return func(b *Batch) error {
		b.label = enable
		return nil
	}
}

// WithFont sets the label font. When labeling is enabled without a font, the default font is loaded by Run.
func WithFont(f *Font) Option {
	return func(b *Batch) error {
		b.font = f
		return nil
	}
}

// WithFontOptions sets how Run loads the label font when no font was given with WithFont.
func WithFontOptions(opts ...FontOption) Option {
	return func(b *Batch) error {
		b.fontOpts = opts
		return nil
	}
}

func WithSize(size int) Option {
	return func(b *Batch) error {
		if size < 0 {
			return fmt.Errorf("invalid size: %d", size)
		}
		if size > 0 {
			b.size = size
		}
		return nil
	}
}

func WithRecoveryLevel(l RecoveryLevel) Option {
	return func(b *Batch) error {
		if l == "" {
			return nil
		}
		if _, err := ParseRecoveryLevel(string(l)); err != nil {
			return err
		}
		b.level = l
		return nil
	}
}

// WithConcurrency limits the number of identifiers processed at the same time.
// Zero or a negative value means no limit.
func WithConcurrency(n int) Option {
	return func(b *Batch) error {
		b.concurrency = n
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Batch) error {
		if logger != nil {
			b.logger = logger
		}
		return nil
	}
}

// New creates a new Batch.
func New(opts ...Option) (_ *Batch, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	b := &Batch{
		size:        DefaultSize,
		level:       RecoveryMedium,
		concurrency: DefaultConcurrency,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	if b.dest == "" {
		return nil, fmt.Errorf("%w: destination directory is required", ErrDirectory)
	}
	return b, nil
}

// Dest returns the destination directory.
func (b *Batch) Dest() string {
	return b.dest
}

// Run generates a QR code for every identifier in ids.
// A failure of one identifier is recorded in the summary and does not stop the others;
// an error is returned only when the run could not start.
func (b *Batch) Run(ctx context.Context, ids []string) (_ *Summary, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if err := os.MkdirAll(b.dest, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create %s: %w", ErrDirectory, b.dest, err)
	}
	f := b.font
	if b.label && f == nil {
		f, err = LoadFont(b.fontOpts...)
		if err != nil {
			return nil, err
		}
	}
	logger := b.logger.With(slog.String("run_id", uuid.NewString()))
	logger.InfoContext(ctx, "generation started",
		slog.Int("total", len(ids)),
		slog.String("dest", b.dest),
		slog.Bool("label", b.label),
		slog.Int("concurrency", b.concurrency),
	)

	s := b.fanOut(ids, func(id string) error {
		return b.generate(id, f)
	}, func(id string, err error) {
		if err != nil {
			logger.ErrorContext(ctx, "failed to generate QR code", slog.String("id", id), slog.String("error", err.Error()))
			return
		}
		logger.InfoContext(ctx, "generated QR code", slog.String("id", id), slog.String("path", ArtifactPath(b.dest, id)))
	})

	logger.InfoContext(ctx, "generation completed",
		slog.Int("total", s.Total),
		slog.Int("succeeded", s.Succeeded),
		slog.Int("failed", s.Failed),
	)
	return s, nil
}

// generate runs one unit of work: synthesize, then label with f if enabled.
// On failure no artifact written by this unit is left behind for id.
func (b *Batch) generate(id string, f *Font) error {
	if err := validateID(id); err != nil {
		return fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	path := ArtifactPath(b.dest, id)
	own, err := synthesize(Payload(b.prefix, id), path, WithSynthSize(b.size), WithSynthRecoveryLevel(b.level))
	if err != nil {
		return err
	}
	if !b.label {
		return nil
	}
	if err := f.Label(path, id); err != nil {
		if _, rerr := removeIfSame(path, own); rerr != nil {
			b.logger.Warn("unlabeled QR code was not removed", slog.String("id", id), slog.String("error", rerr.Error()))
		}
		return err
	}
	return nil
}

// fanOut calls fn once per identifier with at most b.concurrency calls in flight
// and waits for all of them. done is called after each call.
func (b *Batch) fanOut(ids []string, fn func(id string) error, done func(id string, err error)) *Summary {
	eg := new(errgroup.Group)
	if b.concurrency > 0 {
		eg.SetLimit(b.concurrency)
	}
	failures := &failureSet{}
	for i, id := range ids {
		eg.Go(func() error {
			err := fn(id)
			if err != nil {
				failures.add(i, id, err)
			}
			done(id, err)
			return nil
		})
	}
	_ = eg.Wait()
	return failures.summarize(len(ids))
}
