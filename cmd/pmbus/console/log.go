package console

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const PictoBolt = "⚡"
const PictoThermometer = "🌡"
const PictoStop = "🚫"
const PictoPin = "📌"

var writer io.Writer
var errWriter io.Writer

func init() {
	writer = os.Stdout
	errWriter = os.Stderr
}

func SetOutput(w, errw io.Writer) {
	writer = w
	errWriter = errw
}

func Error(msg string) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Red("ERROR"), msg)
}

func Errorf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Red("ERROR"), fmt.Sprintf(msg, args...))
}

func Warnf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Yellow("WARN"), fmt.Sprintf(msg, args...))
}

func Infof(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", White("..."), fmt.Sprintf(msg, args...))
}

func PInfof(picto, msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}

func Printf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}

// Value prints a labelled value with the value highlighted.
func Value(label string, value interface{}) {
	_, _ = fmt.Fprintf(writer, "%-14s %s\n", label+":", White(value))
}

// YAML encodes v to the output.
func YAML(v interface{}) error {
	enc := yaml.NewEncoder(writer)
	defer func() {
		_ = enc.Close()
	}()
	return enc.Encode(v)
}
