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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/k1LoW/errors"
	"github.com/k1LoW/qrbatch"
	"github.com/k1LoW/qrbatch/config"
	"github.com/k1LoW/qrbatch/version"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var (
	profile string
	verbose bool
	open    bool
)

var rootCmd = &cobra.Command{
	Use:          "qrbatch [CSV_FILE]",
	Short:        "qrbatch generates QR codes from a CSV file",
	Long:         `qrbatch generates one QR code image per identifier listed in the first column of a CSV file.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	Version:      fmt.Sprintf("%s (rev:%s)", version.Version, version.Revision),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := config.Load(profile)
		if err != nil {
			return err
		}
		s, err := resolveSettings(cmd, cfg)
		if err != nil {
			return err
		}
		logger, err := newLogger(verbose)
		if err != nil {
			return err
		}

		ids, err := qrbatch.ExtractFile(args[0], s.extractOptions(logger)...)
		if err != nil {
			return err
		}
		b, err := qrbatch.New(s.batchOptions(logger)...)
		if err != nil {
			return err
		}
		summary, err := b.Run(ctx, ids)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ QR codes generated, %s", summary))
		if open {
			if err := browser.OpenFile(b.Dest()); err != nil {
				logger.Warn("failed to open destination directory", "error", err)
			}
		}
		return nil
	},
}

type errorData struct {
	StackTraces any       `json:"stack_traces"`
	LogFile     string    `json:"log_file,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Version     string    `json:"version"`
	Revision    string    `json:"revision"`
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Write stack trace log to state directory
		d := &errorData{
			StackTraces: errors.StackTraces(err),
			LogFile:     logFilePath,
			CreatedAt:   time.Now(),
			Version:     version.Version,
			Revision:    version.Revision,
		}
		b, err := json.Marshal(d)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		} else {
			dumpPath := filepath.Join(config.StateHomePath(), "error.json")
			if err := os.MkdirAll(config.StateHomePath(), 0o700); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "failed to create %s: %v\n", config.StateHomePath(), err)
			} else if err := os.WriteFile(dumpPath, b, 0o600); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "failed to write error.json to %s: %v\n", dumpPath, err)
			}
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "", "", "profile name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
	addSettingsFlags(rootCmd, true)
	rootCmd.Flags().BoolVarP(&open, "open", "", false, "open the destination directory when done")
}
