// Package output handles CLI output formatting.
package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/muesli/termenv"
)

// Output formats CLI output, with colors unless disabled.
type Output struct {
	jsonMode bool
	profile  termenv.Profile
}

// New creates a new Output instance.
func New(jsonMode bool) *Output {
	profile := termenv.ColorProfile()
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		profile = termenv.Ascii
	}
	return &Output{jsonMode: jsonMode, profile: profile}
}

func (o *Output) paint(color, text string) string {
	return termenv.String(text).Foreground(o.profile.Color(color)).String()
}

func (o *Output) bold(text string) string {
	return termenv.String(text).Bold().String()
}

// Success prints a success message.
func (o *Output) Success(format string, args ...any) {
	if o.jsonMode {
		return
	}
	fmt.Printf(o.paint("2", "✓ ")+format+"\n", args...)
}

// Error prints an error message.
func (o *Output) Error(format string, args ...any) {
	if o.jsonMode {
		return
	}
	fmt.Fprintf(os.Stderr, o.paint("1", "✗ ")+format+"\n", args...)
}

// Warn prints a warning message.
func (o *Output) Warn(format string, args ...any) {
	if o.jsonMode {
		return
	}
	fmt.Printf(o.paint("3", "! ")+format+"\n", args...)
}

// Info prints an info message.
func (o *Output) Info(format string, args ...any) {
	if o.jsonMode {
		return
	}
	fmt.Printf(o.paint("6", "→ ")+format+"\n", args...)
}

// Header prints a header.
func (o *Output) Header(text string) {
	if o.jsonMode {
		return
	}
	fmt.Println(o.bold(text))
}

// KeyValue prints a key-value pair.
func (o *Output) KeyValue(key, value string) {
	if o.jsonMode {
		return
	}
	fmt.Printf("  %s: %s\n", o.paint("8", key), value)
}

// Divider prints a divider line.
func (o *Output) Divider() {
	if o.jsonMode {
		return
	}
	fmt.Println(o.paint("8", "─────────────────────────────────────────"))
}

// JSONMode reports whether structured output was requested.
func (o *Output) JSONMode() bool { return o.jsonMode }

// JSON prints data as JSON.
func (o *Output) JSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
