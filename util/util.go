// Package util provides small terminal and filesystem helpers shared by the commands.
package util

import (
	"fmt"
	"os"
	"strings"

	"github.com/melodeck/melodeck/filesystem"
	"github.com/muesli/reflow/truncate"
	"golang.org/x/term"
)

// Quantify returns a pluralized string representation of a count and its associated labels.
func Quantify(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// Capitalize transforms the first rune of a string to its uppercase equivalent.
func Capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalSize retrieves the current character dimensions of the terminal window.
func TerminalSize() (width, height int, err error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// PrintErasable prints an ephemeral message to the terminal and returns a closure to clear it.
// The message is cut to the terminal width so the carriage return can erase it.
func PrintErasable(msg string) (eraser func()) {
	if width, _, err := TerminalSize(); err == nil && width > 1 {
		msg = truncate.StringWithTail(msg, uint(width-1), "…")
	}

	fmt.Fprintf(os.Stdout, "\r%s", msg)
	return func() {
		fmt.Fprintf(os.Stdout, "\r%s\r", strings.Repeat(" ", len(msg)))
	}
}

// Ignore executes a function and explicitly discards its error return value.
func Ignore(f func() error) {
	_ = f()
}

// Delete recursively removes a file or directory using the virtualized filesystem API.
func Delete(path string) error {
	fs := filesystem.API()
	stat, err := fs.Stat(path)
	if err != nil {
		return err
	}

	if stat.IsDir() {
		return fs.RemoveAll(path)
	}
	return fs.Remove(path)
}
