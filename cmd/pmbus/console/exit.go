package console

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/pmbus"
)

// Exit codes reported for bus failures.
const (
	ExitFailure = 1
	ExitNack    = 2
	ExitTimeout = 3
)

func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

// ExitErr reports a failed bus operation with an exit code derived from its
// cause.
func ExitErr(what string, err error) cli.ExitCoder {
	code := ExitFailure
	switch {
	case errors.Is(err, pmbus.ErrNack):
		code = ExitNack
	case errors.Is(err, pmbus.ErrTimeout):
		code = ExitTimeout
	}
	return Exit(code, "%s: %s", what, Red(err))
}
