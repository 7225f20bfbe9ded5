// Text styling for terminal output.
//
// Styles are dropped when color.NoColor is set, which fatih/color does on its
// own when stdout is not a terminal or NO_COLOR is set.
package pretty

import (
	"github.com/fatih/color"
)

var (
	dim  = color.New(color.Faint)
	bold = color.New(color.Bold)
)

func Dim(s string) string {
	return dim.Sprint(s)
}

func Bold(s string) string {
	return bold.Sprint(s)
}
