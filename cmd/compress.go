package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/lensferno/imgtool/internal/codec"
	"github.com/lensferno/imgtool/internal/config"
	"github.com/lensferno/imgtool/internal/logging"
	"github.com/lensferno/imgtool/internal/processor"
	"github.com/lensferno/imgtool/internal/tui"
)

func newCompressCmd(root *rootOptions) *cobra.Command {
	var output string

	compressCmd := &cobra.Command{
		Use:   "compress [flags] <input> -o <output>",
		Short: "Compress, convert or resize an image or a directory of images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(cmd, root.configFile, args[0], output)
			if err != nil {
				return err
			}
			return runCompress(cmd, run)
		},
	}

	flags := compressCmd.Flags()
	flags.StringVarP(&output, "output", "o", "", "output file, or directory when the input is a directory")
	flags.StringP("prefix", "p", "", "prepend to output file names")
	flags.StringP("suffix", "s", "", "insert before the output file extension")
	flags.StringP("target-format", "t", "", "convert to jpg, jpeg, png, gif, webp or tiff")
	flags.String("resize", "", "resize directive, e.g. short_edge:edge_size=800 or scale:ratio=0.5")
	flags.Bool("continue-on-error", false, "log failed files and keep going")
	flags.Bool("delete-origin", false, "delete each source file after it is processed")
	flags.Bool("dry-run", false, "print what would be done without writing anything")
	flags.Bool("skip-if-bigger", false, "accepted for compatibility; has no effect")
	flags.Bool("keep-metadata", false, "keep EXIF metadata where the output format allows")
	flags.Bool("lossless", false, "prefer lossless encoding")
	flags.Int("jpeg-quality", 80, "JPEG quality, 1-100")
	flags.Int("png-optimization-level", 2, "PNG optimization level, 0-6")
	flags.Int("gif-quality", 80, "GIF quality, 0-100")
	flags.String("tiff-algorithm", "deflate", "TIFF compression: deflate or uncompressed")
	flags.String("enlarge-policy", "defer", "how donot_enlarge is enforced: defer or clamp")
	flags.Bool("progress", false, "show a progress view on interactive terminals")
	flags.String("plan-format", "table", "dry run output: table or yaml")
	_ = compressCmd.MarkFlagRequired("output")

	return compressCmd
}

// loadRun layers the configuration with only the flags the user actually set
// on top, so flag defaults never mask the config file.
func loadRun(cmd *cobra.Command, configFile, input, output string) (*config.Run, error) {
	overrides := make(map[string]interface{})
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if key, ok := config.KeyForFlag(f.Name); ok {
			overrides[key] = f.Value.String()
		}
	})

	settings, err := config.Loader{ConfigFile: configFile, Overrides: overrides}.Load()
	if err != nil {
		return nil, err
	}
	return settings.Build(input, output)
}

func runCompress(cmd *cobra.Command, run *config.Run) error {
	logger := logging.GetLogger("compress")
	if run.SkipIfBigger {
		logger.Warn().Msg("skip_if_bigger is set but not supported; outputs are written regardless of size")
	}

	proc := processor.New(run.Processor, codec.NewImaging())
	out := cmd.OutOrStdout()

	if run.DryRun {
		entries, err := proc.Plan()
		if err != nil {
			return err
		}
		return printPlan(out, entries, run.PlanFormat)
	}

	ctx, cancel := context.WithCancel(log.Logger.WithContext(cmd.Context()))
	defer cancel()

	done := logging.LogOperationStart(logger, "compress")
	summary, err := runWithProgress(ctx, cancel, proc, run.Progress && logging.IsInteractive())
	done()

	if summary.Total > 0 || err == nil {
		fmt.Fprintln(out, tui.RenderSummary(tui.SummaryRows(summary)))
	}
	if err != nil {
		return err
	}

	outPath := run.Processor.Output
	if abs, absErr := filepath.Abs(outPath); absErr == nil {
		outPath = abs
	}
	fmt.Fprintf(out, "Output written to: %s\n", outPath)
	return nil
}

// runWithProgress runs the batch, feeding a bubbletea view when showProgress
// is set. Quitting the view with ctrl+c cancels the batch after the current file.
func runWithProgress(ctx context.Context, cancel context.CancelFunc, proc *processor.Processor, showProgress bool) (processor.Summary, error) {
	if !showProgress {
		summary, _, err := proc.Run(ctx, nil)
		return summary, err
	}

	updates := make(chan processor.ProgressUpdate, 64)
	program := tea.NewProgram(tui.NewModel(updates))

	uiDone := make(chan struct{})
	go func() {
		final, err := program.Run()
		if err != nil {
			log.Debug().Err(err).Msg("Progress view stopped")
		}
		if m, ok := final.(tui.Model); ok && m.Interrupted() {
			cancel()
		}
		close(uiDone)
		for range updates {
		}
	}()

	summary, _, err := proc.Run(ctx, updates)
	close(updates)
	<-uiDone
	return summary, err
}

func printPlan(w io.Writer, entries []processor.PlanEntry, format config.PlanFormat) error {
	if format == config.PlanYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	}
	_, err := fmt.Fprintln(w, tui.RenderPlan(entries))
	return err
}
