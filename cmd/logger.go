/*
Copyright © 2025 Ken'ichiro Oyama <k1lowxb@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/k1LoW/qrbatch/config"
	"github.com/k1LoW/qrbatch/logger/dot"
	slogmulti "github.com/samber/slog-multi"
)

// logFilePath is the JSON log of the current invocation, referenced from error.json.
var logFilePath string

// newLogger returns a logger that renders progress on stdout, reports warnings and
// failures on stderr, and appends JSON records to the log file in the state directory.
func newLogger(verbose bool) (*slog.Logger, error) {
	dh, err := dot.New(slog.NewTextHandler(io.Discard, nil))
	if err != nil {
		return nil, err
	}
	stderrLevel := slog.LevelWarn
	if verbose {
		stderrLevel = slog.LevelDebug
	}
	handlers := []slog.Handler{
		dh,
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: stderrLevel}),
	}
	if f, err := openLogFile(); err == nil {
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
	}
	return slog.New(slogmulti.Fanout(handlers...)), nil
}

// openLogFile opens the log file for appending. It stays open until the process exits.
func openLogFile() (*os.File, error) {
	dir := config.StateHomePath()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	p := filepath.Join(dir, "qrbatch.log")
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	logFilePath = p
	return f, nil
}
