package format

import (
	"strings"
	"testing"
	"time"
)

func TestNew_DefaultTemplate(t *testing.T) {
	// Given: no template text
	// When: New is called
	f, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Then: the default template renders a full transition line
	tr := Transition{
		Team:     "main",
		Pipeline: "deploy",
		Job:      "unit",
		Build:    "104",
		Status:   "succeeded",
		When:     time.Date(2026, 8, 25, 14, 30, 5, 0, time.UTC),
	}
	got, err := f.Format(tr)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := "14:30:05 main/deploy unit #104 succeeded"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestNew_CustomTemplate(t *testing.T) {
	// Given: a caller-supplied template
	f, err := New(`{{.Job}}: {{.Previous}} -> {{.Status}}`)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// When: a transition with a prior status is formatted
	got, err := f.Format(Transition{Job: "unit", Previous: "started", Status: "failed"})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	// Then: both statuses appear
	if got != "unit: started -> failed" {
		t.Errorf("Format() = %q, want %q", got, "unit: started -> failed")
	}
}

func TestNew_BadSyntax(t *testing.T) {
	// Given: template text with unclosed syntax
	// When: New is called
	_, err := New(`{{.Job`)

	// Then: an error mentioning "format" is returned
	if err == nil {
		t.Fatal("New(bad syntax) should return error")
	}
	if !strings.Contains(err.Error(), "format") {
		t.Errorf("error should mention 'format', got: %v", err)
	}
}

func TestNew_UnknownField(t *testing.T) {
	// Given: a template referencing a field transitions do not have
	// When: New is called
	_, err := New(`{{.Bogus}}`)

	// Then: the bad reference is caught before the watch loop starts
	if err == nil {
		t.Fatal("New(unknown field) should return error")
	}
}

func TestFormat_NoTrailingNewline(t *testing.T) {
	f, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, err := f.Format(Transition{Team: "main", Pipeline: "p", Job: "j", Build: "1", Status: "started"})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if strings.HasSuffix(got, "\n") {
		t.Errorf("Format() = %q, should not end with newline", got)
	}
}
