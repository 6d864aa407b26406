package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lensferno/imgtool/internal/codec"
	"github.com/lensferno/imgtool/internal/processor"
	"github.com/lensferno/imgtool/internal/tui"
	"github.com/lensferno/imgtool/pkg/imgutil"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <path>",
		Short: "Report format and natural size without modifying files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := processor.Enumerate(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			c := codec.NewImaging()
			for i, path := range files {
				if i > 0 {
					fmt.Fprintln(out)
				}
				inspectFile(out, c, path)
			}
			return nil
		},
	}
}

func inspectFile(w io.Writer, c codec.Codec, path string) {
	fmt.Fprintln(w, inspectFileStyle.Render(path))

	data, err := os.ReadFile(path)
	if err != nil {
		inspectLine(w, "error", inspectWarnStyle.Render(err.Error()))
		return
	}

	inspectLine(w, "format", inspectValueStyle.Render(imgutil.Detect(data).String()))
	inspectLine(w, "bytes", inspectValueStyle.Render(tui.FormatBytes(int64(len(data)))))

	size, err := c.ProbeSize(data)
	if err != nil {
		inspectLine(w, "size", inspectDimStyle.Render("unknown"))
		return
	}
	inspectLine(w, "size", inspectValueStyle.Render(fmt.Sprintf("%dx%d", size.Width, size.Height)))
}

func inspectLine(w io.Writer, key, value string) {
	fmt.Fprintf(w, "  %s %s %s\n", inspectBulletStyle.Render("-"), inspectKeyStyle.Render(key+":"), value)
}

var (
	inspectFileStyle   = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	inspectKeyStyle    = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	inspectValueStyle  = lipgloss.NewStyle().Foreground(tui.ColorInk)
	inspectWarnStyle   = lipgloss.NewStyle().Foreground(tui.ColorWarn)
	inspectDimStyle    = lipgloss.NewStyle().Foreground(tui.ColorDim)
	inspectBulletStyle = lipgloss.NewStyle().Foreground(tui.ColorDim)
)
