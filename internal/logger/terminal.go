package logger

import (
	"os"

	"github.com/mattn/go-isatty"
)

// isTerminal reports whether f is an interactive console, including
// Cygwin/MSYS ptys on Windows.
func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
