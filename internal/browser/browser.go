// Package browser opens URLs in the user's default browser.
package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Opener launches the platform's URL handler.
type Opener struct {
	// run executes the open command; swapped in tests.
	run func(ctx context.Context, name string, args ...string) error
}

// NewOpener creates an Opener.
func NewOpener() *Opener {
	return &Opener{run: runCommand}
}

// Open launches the default browser at rawURL. Only http and https URLs
// are accepted; anything else would hand arbitrary strings to the
// platform handler.
func (o *Opener) Open(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("browser: parsing %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("browser: refusing to open %q: scheme must be http or https", rawURL)
	}

	name, args := commandFor(runtime.GOOS, rawURL)
	return o.run(ctx, name, args...)
}

// commandFor picks the platform URL handler.
func commandFor(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("browser: %s: %w: %s", name, err, bytes.TrimSpace(output))
	}
	return nil
}
