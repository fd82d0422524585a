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

	"github.com/fatih/color"
	"github.com/k1LoW/qrbatch"
	"github.com/k1LoW/qrbatch/config"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [CSV_FILE]",
	Short: "verify that generated QR codes decode to the expected payload",
	Long:  `verify decodes the QR code of every identifier in the CSV file and checks its payload.`,
	Args:  cobra.ExactArgs(1),
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
		b, err := qrbatch.New(
			qrbatch.WithDest(s.dest),
			qrbatch.WithPrefix(s.prefix),
			qrbatch.WithConcurrency(s.concurrency),
			qrbatch.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		summary, err := b.Verify(ctx, ids)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d QR codes failed verification", summary.Failed, summary.Total)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ QR codes verified, %s", summary))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	addSettingsFlags(verifyCmd, false)
}
