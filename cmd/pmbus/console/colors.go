package console

import (
	"fmt"

	"github.com/fatih/color"
)

// Available ANSI colors
var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

// Flags colors a decoded status register: green when clear, red otherwise.
func Flags(s fmt.Stringer, clear bool) string {
	if clear {
		return Green(s.String())
	}
	return Red(s.String())
}
