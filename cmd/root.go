package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lensferno/imgtool/internal/config"
	"github.com/lensferno/imgtool/internal/errors"
	"github.com/lensferno/imgtool/internal/logging"
)

type rootOptions struct {
	verbosity  int
	configFile string
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "imgtool",
		Short: "imgtool - compress, convert and resize images in bulk",
		Long: "imgtool compresses, converts and resizes a single image or every image in a directory.\n" +
			"Options are read from " + config.DefaultConfigPath() + ", IMGTOOL_* environment variables and flags.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(opts.verbosity, cmd.ErrOrStderr())
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file, .toml or .yaml")

	rootCmd.AddCommand(newCompressCmd(opts), newInspectCmd())
	return rootCmd
}

// Execute runs the CLI and exits with status 1 on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints err once. Configuration errors get a pointer to the
// flag reference since usage output is silenced.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, err)
	if errors.IsErrorCode(err, errors.ErrConfig) {
		fmt.Fprintln(w, "Run 'imgtool compress --help' for the accepted options.")
	}
}
