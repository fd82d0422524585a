package qrbatch

import (
	"fmt"
	"os"
	"strings"

	"github.com/k1LoW/errors"
	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the width and height of generated QR codes in pixels.
const DefaultSize = 300

type RecoveryLevel string

const (
	RecoveryLow      RecoveryLevel = "L"
	RecoveryMedium   RecoveryLevel = "M"
	RecoveryQuartile RecoveryLevel = "Q"
	RecoveryHigh     RecoveryLevel = "H"
)

// ParseRecoveryLevel accepts L, M, Q or H (case insensitive). An empty string means Medium.
func ParseRecoveryLevel(s string) (RecoveryLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return RecoveryMedium, nil
	case "L":
		return RecoveryLow, nil
	case "M":
		return RecoveryMedium, nil
	case "Q":
		return RecoveryQuartile, nil
	case "H":
		return RecoveryHigh, nil
	default:
		return "", fmt.Errorf("invalid recovery level: %s (must be one of L, M, Q, H)", s)
	}
}

func (l RecoveryLevel) qrcodeLevel() qrcode.RecoveryLevel {
	switch l {
	case RecoveryLow:
		return qrcode.Low
	case RecoveryQuartile:
		return qrcode.High
	case RecoveryHigh:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// Payload returns the string encoded for id: "prefix/id", or id alone when prefix is empty.
func Payload(prefix, id string) string {
	if prefix == "" {
		return id
	}
	return prefix + "/" + id
}

type synthesizer struct {
	size  int
	level RecoveryLevel
}

type SynthOption func(*synthesizer)

func WithSynthSize(size int) SynthOption {
	return func(s *synthesizer) {
		if size > 0 {
			s.size = size
		}
	}
}

func WithSynthRecoveryLevel(l RecoveryLevel) SynthOption {
	return func(s *synthesizer) {
		if l != "" {
			s.level = l
		}
	}
}

// Synthesize encodes payload as a square QR code PNG and writes it to dst.
func Synthesize(payload, dst string, opts ...SynthOption) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	_, err = synthesize(payload, dst, opts...)
	return err
}

// synthesize is Synthesize returning the info of the file it wrote.
func synthesize(payload, dst string, opts ...SynthOption) (os.FileInfo, error) {
	s := &synthesizer{
		size:  DefaultSize,
		level: RecoveryMedium,
	}
	for _, opt := range opts {
		opt(s)
	}
	if payload == "" {
		return nil, fmt.Errorf("%w: payload is empty", ErrSynthesis)
	}
	q, err := qrcode.New(payload, s.level.qrcodeLevel())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode %q: %w", ErrSynthesis, payload, err)
	}
	b, err := q.PNG(s.size)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to render %q: %w", ErrSynthesis, payload, err)
	}
	fi, err := writeFileAtomic(dst, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	return fi, nil
}
