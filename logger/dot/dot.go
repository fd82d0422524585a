package dot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/k1LoW/errors"
	"github.com/mattn/go-colorable"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
)

var _ slog.Handler = (*dotHandler)(nil)

// dotHandler renders one glyph per processed identifier instead of log lines.
type dotHandler struct {
	handler slog.Handler
	spinner *spinner.Spinner
	stdout  io.Writer
	state   *state
}

// state is shared between handlers derived with WithAttrs/WithGroup.
type state struct {
	mu     sync.Mutex
	prefix []byte
	// busy is true between "started" and "completed".
	busy bool
}

func New(h slog.Handler) (_ *dotHandler, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	return newHandler(h, colorable.NewColorableStdout())
}

func newHandler(h slog.Handler, stdout io.Writer) (_ *dotHandler, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(stdout))
	if err := s.Color("yellow"); err != nil {
		return nil, err
	}
	s.Start()
	s.Disable()
	return &dotHandler{
		handler: h,
		spinner: s,
		stdout:  stdout,
		state:   &state{},
	}, nil
}

func (h *dotHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *dotHandler) Handle(ctx context.Context, r slog.Record) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()

	h.state.mu.Lock()
	defer h.state.mu.Unlock()

	if strings.HasSuffix(r.Message, "started") {
		h.state.prefix = nil
		h.state.busy = true
		h.resume()
		return nil
	}
	h.pause()
	switch {
	case r.Message == "generated QR code", r.Message == "verified QR code":
		err = h.write([]byte(green(".")))
	case strings.HasPrefix(r.Message, "failed to"):
		err = h.write([]byte(red("!")))
	case strings.HasSuffix(r.Message, "completed"):
		h.state.prefix = nil
		h.state.busy = false
		_, _ = h.stdout.Write([]byte("\n"))
	}
	if h.state.busy {
		h.resume()
	}
	return err
}

// pause stops the spinner and puts back the glyphs it erased.
func (h *dotHandler) pause() {
	active := h.spinner.Active()
	if h.spinner.Enabled() {
		h.spinner.Disable()
	}
	if active {
		_, _ = h.stdout.Write(h.state.prefix)
	}
}

// resume shows the spinner after the glyphs written so far.
func (h *dotHandler) resume() {
	h.spinner.Prefix = string(h.state.prefix)
	h.spinner.Enable()
}

func (h *dotHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dotHandler{handler: h.handler.WithAttrs(attrs), spinner: h.spinner, stdout: h.stdout, state: h.state}
}

func (h *dotHandler) WithGroup(name string) slog.Handler {
	return &dotHandler{handler: h.handler.WithGroup(name), spinner: h.spinner, stdout: h.stdout, state: h.state}
}

func (h *dotHandler) write(s []byte) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()

	_, err = h.stdout.Write(s)
	if err != nil {
		return err
	}
	h.state.prefix = append(h.state.prefix, s...)
	return nil
}
