package qrbatch

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/k1LoW/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// DefaultFontSize matches a 16px sans face at 72 DPI.
	DefaultFontSize = 16.0
	// labelMarginBottom is the gap between the label box and the bottom edge.
	labelMarginBottom = 8
	fontDPI           = 72
)

// Font is a parsed font shared read-only by all label operations.
// A face is created per operation because faces cache glyphs internally.
type Font struct {
	otf  *opentype.Font // nil for the built-in bitmap face
	size float64
	name string
}

type fontLoader struct {
	path  string
	size  float64
	basic bool
}

type FontOption func(*fontLoader)

// WithFontFile loads a TrueType/OpenType font from path instead of Go Regular.
func WithFontFile(path string) FontOption {
	return func(l *fontLoader) {
		l.path = path
	}
}

func WithFontSize(pt float64) FontOption {
	return func(l *fontLoader) {
		if pt > 0 {
			l.size = pt
		}
	}
}

// WithBasicFont selects the built-in 7x13 bitmap face.
func WithBasicFont() FontOption {
	return func(l *fontLoader) {
		l.basic = true
	}
}

// LoadFont loads the label font. Without options it is Go Regular at DefaultFontSize.
func LoadFont(opts ...FontOption) (_ *Font, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	l := &fontLoader{size: DefaultFontSize}
	for _, opt := range opts {
		opt(l)
	}
	if l.basic {
		return &Font{name: "basic"}, nil
	}
	b := goregular.TTF
	name := "goregular"
	if l.path != "" {
		b, err = os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read font file %s: %w", ErrFontLoad, l.path, err)
		}
		name = l.path
	}
	otf, err := opentype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse font %s: %w", ErrFontLoad, name, err)
	}
	return &Font{otf: otf, size: l.size, name: name}, nil
}

func (f *Font) String() string {
	if f == nil {
		return ""
	}
	return f.name
}

func (f *Font) newFace() (font.Face, error) {
	if f.otf == nil {
		return basicfont.Face7x13, nil
	}
	face, err := opentype.NewFace(f.otf, &opentype.FaceOptions{
		Size:    f.size,
		DPI:     fontDPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// Measure returns the width and height in pixels of text rendered on a single line.
func (f *Font) Measure(text string) (width, height int, err error) {
	face, err := f.newFace()
	if err != nil {
		return 0, 0, err
	}
	defer face.Close()
	w, h := measure(face, text)
	return w, h, nil
}

func measure(face font.Face, text string) (int, int) {
	return font.MeasureString(face, text).Ceil(), face.Metrics().Height.Ceil()
}

// Placement returns the top-left corner of a textW x textH label centered horizontally
// and sitting labelMarginBottom pixels above the bottom edge of bounds.
// The label may fall partly outside bounds; it is not clamped.
func Placement(bounds image.Rectangle, textW, textH int) image.Point {
	return image.Point{
		X: bounds.Min.X + bounds.Dx()/2 - textW/2,
		Y: bounds.Min.Y + bounds.Dy() - textH - labelMarginBottom,
	}
}

// Label draws text near the bottom center of the PNG at path and rewrites it in place.
func (f *Font) Label(path, text string) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if f == nil {
		return fmt.Errorf("%w: font is not loaded", ErrLabel)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read image %s: %w", ErrLabel, path, err)
	}
	src, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%w: failed to decode image %s: %w", ErrLabel, path, err)
	}
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)

	face, err := f.newFace()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLabel, err)
	}
	defer face.Close()

	w, h := measure(face, text)
	pt := Placement(dst.Bounds(), w, h)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(pt.X, pt.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, dst); err != nil {
		return fmt.Errorf("%w: failed to encode image %s: %w", ErrLabel, path, err)
	}
	if _, err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %w", ErrLabel, err)
	}
	return nil
}
