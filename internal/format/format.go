// Package format renders observed build transitions as output lines.
package format

import (
	"bytes"
	"fmt"
	"io"
	"text/template"
	"time"
)

// Transition is one observed build status change on a watched pipeline.
type Transition struct {
	Team     string
	Pipeline string
	Job      string
	Build    string // build name as shown by the server, e.g. "104"
	BuildID  int
	Status   string
	Previous string // prior status; empty for the first observation
	When     time.Time
}

// DefaultTemplate is the line format used when the caller supplies none.
const DefaultTemplate = `{{.When.Format "15:04:05"}} {{.Team}}/{{.Pipeline}} {{.Job}} #{{.Build}} {{.Status}}`

// Formatter renders transitions through a Go text/template.
type Formatter struct {
	tmpl *template.Template
}

// New parses tmplText and verifies it renders against a zero Transition,
// so a bad --format flag fails before the watch loop starts rather than
// on its first transition.
func New(tmplText string) (*Formatter, error) {
	if tmplText == "" {
		tmplText = DefaultTemplate
	}

	tmpl, err := template.New("transition").Option("missingkey=error").Parse(tmplText)
	if err != nil {
		return nil, fmt.Errorf("format: parsing template: %w", err)
	}

	if err := tmpl.Execute(io.Discard, Transition{}); err != nil {
		return nil, fmt.Errorf("format: template does not fit transitions: %w", err)
	}

	return &Formatter{tmpl: tmpl}, nil
}

// Default returns a Formatter using DefaultTemplate.
func Default() *Formatter {
	f, err := New("")
	if err != nil {
		panic(err) // DefaultTemplate always parses
	}
	return f
}

// Format renders one transition as a line, without a trailing newline.
func (f *Formatter) Format(tr Transition) (string, error) {
	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, tr); err != nil {
		return "", fmt.Errorf("format: executing template: %w", err)
	}
	return buf.String(), nil
}
