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
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/k1LoW/qrbatch"
	"github.com/k1LoW/qrbatch/config"
	"github.com/spf13/cobra"
)

const basicFontName = "basic"

var (
	dest        string
	prefix      string
	label       bool
	size        int
	concurrency int
	delimiter   string
	filter      string
	fontFile    string
	fontSize    float64
	recovery    string
)

// settings is the result of merging flags over the config file.
type settings struct {
	dest        string
	prefix      string
	label       bool
	size        int
	concurrency int
	delimiter   rune
	filter      string
	fontFile    string
	fontSize    float64
	recovery    qrbatch.RecoveryLevel
}

func addSettingsFlags(cmd *cobra.Command, generate bool) {
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "directory where the generated QR codes are stored")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "prefix added to each identifier in the QR code payload")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", qrbatch.DefaultConcurrency, "number of QR codes processed at the same time (0 means unlimited)")
	cmd.Flags().StringVarP(&delimiter, "delimiter", "", ",", "field delimiter of the CSV file")
	cmd.Flags().StringVarP(&filter, "filter", "", "", "CEL expression selecting identifiers (variables: id, index)")
	if err := cmd.MarkFlagRequired("dest"); err != nil {
		panic(err)
	}
	if !generate {
		return
	}
	cmd.Flags().BoolVarP(&label, "label", "l", false, "draw the identifier under each QR code")
	cmd.Flags().IntVarP(&size, "size", "s", qrbatch.DefaultSize, "width and height of each QR code in pixels")
	cmd.Flags().StringVarP(&recovery, "recovery", "r", string(qrbatch.RecoveryMedium), "error correction level (L, M, Q, H)")
	cmd.Flags().StringVarP(&fontFile, "font", "", "", `label font file (TTF/OTF), or "basic" for the built-in bitmap font`)
	cmd.Flags().Float64VarP(&fontSize, "font-size", "", qrbatch.DefaultFontSize, "label font size in points")
}

func resolveSettings(cmd *cobra.Command, cfg *config.Config) (*settings, error) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	s := &settings{
		dest:        dest,
		prefix:      prefix,
		label:       label,
		size:        size,
		concurrency: concurrency,
		filter:      filter,
		fontFile:    fontFile,
		fontSize:    fontSize,
	}
	d := delimiter
	r := recovery
	if cfg != nil {
		if !changed("prefix") && cfg.Prefix != "" {
			s.prefix = cfg.Prefix
		}
		if !changed("label") && cfg.Label != nil {
			s.label = *cfg.Label
		}
		if !changed("size") && cfg.Size != nil {
			s.size = *cfg.Size
		}
		if !changed("concurrency") && cfg.Concurrency != nil {
			s.concurrency = *cfg.Concurrency
		}
		if !changed("filter") && cfg.Filter != "" {
			s.filter = cfg.Filter
		}
		if !changed("delimiter") && cfg.Delimiter != "" {
			d = cfg.Delimiter
		}
		if !changed("recovery") && cfg.Recovery != "" {
			r = cfg.Recovery
		}
		if cfg.Font != nil {
			if !changed("font") && cfg.Font.File != "" {
				s.fontFile = cfg.Font.File
			}
			if !changed("font-size") && cfg.Font.Size > 0 {
				s.fontSize = cfg.Font.Size
			}
		}
	}
	if s.dest == "" {
		return nil, fmt.Errorf("--dest is required")
	}
	if s.size <= 0 {
		return nil, fmt.Errorf("invalid size: %d", s.size)
	}
	var err error
	s.delimiter, err = parseDelimiter(d)
	if err != nil {
		return nil, err
	}
	s.recovery, err = qrbatch.ParseRecoveryLevel(r)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func parseDelimiter(d string) (rune, error) {
	switch d {
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(d) != 1 {
		return 0, fmt.Errorf("invalid delimiter: %q (must be a single character)", d)
	}
	r, _ := utf8.DecodeRuneInString(d)
	return r, nil
}

func (s *settings) extractOptions(logger *slog.Logger) []qrbatch.ExtractOption {
	return []qrbatch.ExtractOption{
		qrbatch.WithDelimiter(s.delimiter),
		qrbatch.WithFilter(s.filter),
		qrbatch.WithExtractLogger(logger),
	}
}

func (s *settings) fontOptions() []qrbatch.FontOption {
	opts := []qrbatch.FontOption{qrbatch.WithFontSize(s.fontSize)}
	switch {
	case strings.EqualFold(s.fontFile, basicFontName):
		opts = append(opts, qrbatch.WithBasicFont())
	case s.fontFile != "":
		opts = append(opts, qrbatch.WithFontFile(s.fontFile))
	}
	return opts
}

func (s *settings) batchOptions(logger *slog.Logger) []qrbatch.Option {
	return []qrbatch.Option{
		qrbatch.WithDest(s.dest),
		qrbatch.WithPrefix(s.prefix),
		qrbatch.WithLabel(s.label),
		qrbatch.WithFontOptions(s.fontOptions()...),
		qrbatch.WithSize(s.size),
		qrbatch.WithRecoveryLevel(s.recovery),
		qrbatch.WithConcurrency(s.concurrency),
		qrbatch.WithLogger(logger),
	}
}
