package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type fdWriter interface {
	Fd() uintptr
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(fdWriter)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// IsInteractive reports whether stdout is attached to a terminal.
func IsInteractive() bool {
	return isTerminal(os.Stdout)
}
