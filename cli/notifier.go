package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// colorNotifier prints collection notifications to the terminal.
type colorNotifier struct {
	out     io.Writer
	errOut  io.Writer
	success *color.Color
	failure *color.Color
}

func newColorNotifier(out, errOut io.Writer) *colorNotifier {
	return &colorNotifier{
		out:     out,
		errOut:  errOut,
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
	}
}

func (n *colorNotifier) Success(message string) {
	fmt.Fprintln(n.out, n.success.Sprint("✓ ")+message)
}

func (n *colorNotifier) Error(message string) {
	fmt.Fprintln(n.errOut, n.failure.Sprint("✗ ")+message)
}
