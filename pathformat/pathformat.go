// Package pathformat turns capture timestamps into destination paths using strftime templates
// such as "/some-dir/%Y-%m-%d/%Y-%m-%dT%H-%M-%SZ.jpg".
package pathformat

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"
)

// probeTime is used to check that a template resolves to something at all
var probeTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Formatter is a compiled path template
type Formatter struct {
	pattern *strftime.Strftime
}

// New compiles a template. It fails if the template contains unknown placeholders
// or resolves to an empty path.
func New(template string) (*Formatter, error) {
	pattern, err := strftime.New(template)
	if err != nil {
		return nil, fmt.Errorf("invalid path format %q: %w", template, err)
	}
	if pattern.FormatString(probeTime) == "" {
		return nil, fmt.Errorf("path format %q resolves to an empty path", template)
	}
	return &Formatter{pattern: pattern}, nil
}

// Format resolves the template for t, converted to UTC
func (f *Formatter) Format(t time.Time) string {
	return f.pattern.FormatString(t.UTC())
}

// Template returns the source template
func (f *Formatter) Template() string {
	return f.pattern.Pattern()
}

// Format is a convenience wrapper around New and Formatter.Format
func Format(t time.Time, template string) (string, error) {
	f, err := New(template)
	if err != nil {
		return "", err
	}
	return f.Format(t), nil
}
