package qrbatch

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/k1LoW/errors"
	"github.com/makiuchi-d/gozxing"
	gozxingqr "github.com/makiuchi-d/gozxing/qrcode"
)

// Decode reads the QR code image at path and returns the encoded text.
func Decode(path string) (_ string, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to binarize image %s: %w", path, err)
	}
	res, err := gozxingqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read QR code in %s: %w", path, err)
	}
	return res.GetText(), nil
}

// Verify decodes the artifact of every identifier in ids and checks that it holds the expected payload.
func (b *Batch) Verify(ctx context.Context, ids []string) (_ *Summary, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	fi, err := os.Stat(b.dest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectory, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectory, b.dest)
	}
	logger := b.logger.With(slog.String("run_id", uuid.NewString()))
	logger.InfoContext(ctx, "verification started", slog.Int("total", len(ids)), slog.String("dest", b.dest))

	s := b.fanOut(ids, func(id string) error {
		if err := validateID(id); err != nil {
			return fmt.Errorf("%w: %w", ErrVerify, err)
		}
		got, err := Decode(ArtifactPath(b.dest, id))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrVerify, err)
		}
		if want := Payload(b.prefix, id); got != want {
			return fmt.Errorf("%w: payload mismatch: got %q, want %q", ErrVerify, got, want)
		}
		return nil
	}, func(id string, err error) {
		if err != nil {
			logger.ErrorContext(ctx, "failed to verify QR code", slog.String("id", id), slog.String("error", err.Error()))
			return
		}
		logger.InfoContext(ctx, "verified QR code", slog.String("id", id))
	})

	logger.InfoContext(ctx, "verification completed",
		slog.Int("total", s.Total),
		slog.Int("succeeded", s.Succeeded),
		slog.Int("failed", s.Failed),
	)
	return s, nil
}
