package qrbatch

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/k1LoW/errors"
)

// separator is removed from every raw value, wherever it occurs.
const separator = ";"

const bom = '\ufeff'

type extractor struct {
	delimiter rune
	filter    string
	logger    *slog.Logger
}

type ExtractOption func(*extractor) error

// WithDelimiter sets the field delimiter of the input file. The default is ','.
func WithDelimiter(d rune) ExtractOption {
	return func(e *extractor) error {
		if d == 0 || d == '"' || d == '\r' || d == '\n' {
			return fmt.Errorf("invalid delimiter: %q", d)
		}
		e.delimiter = d
		return nil
	}
}

// WithFilter keeps only the identifiers for which the CEL expression evaluates to true.
// The expression can refer to `id` (string) and `index` (int).
func WithFilter(expr string) ExtractOption {
	return func(e *extractor) error {
		e.filter = strings.TrimSpace(expr)
		return nil
	}
}

func WithExtractLogger(logger *slog.Logger) ExtractOption {
	return func(e *extractor) error {
		e.logger = logger
		return nil
	}
}

// ExtractFile reads identifiers from a headerless delimited file.
func ExtractFile(path string, opts ...ExtractOption) (_ []string, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", ErrInputRead, path, err)
	}
	defer f.Close()
	return Extract(f, opts...)
}

// Extract reads identifiers from r. The first field of each record is the raw value,
// trimmed of surrounding white space and with every ';' removed. A leading byte order
// mark is ignored. Records whose value ends up empty and records that cannot be parsed
// are skipped and logged.
func Extract(r io.Reader, opts ...ExtractOption) (_ []string, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	e := &extractor{
		delimiter: ',',
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInputRead, err)
		}
	}

	br := bufio.NewReader(r)
	if c, _, err := br.ReadRune(); err == nil && c != bom {
		if err := br.UnreadRune(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInputRead, err)
		}
	}
	cr := csv.NewReader(br)
	cr.Comma = e.delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var ids []string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if perr, ok := err.(*csv.ParseError); ok {
				e.logger.Warn("skipped malformed row", slog.Int("line", perr.StartLine), slog.String("error", perr.Err.Error()))
				continue
			}
			return nil, fmt.Errorf("%w: failed to read rows: %w", ErrInputRead, err)
		}
		if len(record) == 0 {
			continue
		}
		line, _ := cr.FieldPos(0)
		id := strings.ReplaceAll(strings.TrimSpace(record[0]), separator, "")
		if strings.TrimSpace(id) == "" {
			e.logger.Warn("skipped empty row", slog.Int("line", line))
			continue
		}
		ids = append(ids, id)
	}

	if e.filter == "" {
		return ids, nil
	}
	f, err := newIDFilter(e.filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputRead, err)
	}
	filtered := make([]string, 0, len(ids))
	for i, id := range ids {
		ok, err := f.match(id, i)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInputRead, err)
		}
		if !ok {
			e.logger.Debug("filtered out", slog.String("id", id))
			continue
		}
		filtered = append(filtered, id)
	}
	return filtered, nil
}
