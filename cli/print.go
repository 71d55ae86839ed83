package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var warningPrefix = color.New(color.FgYellow, color.Bold)

// warningf prints a message prefixed with a bold yellow "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	warningPrefix.Fprint(w, "Warning: ")
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
