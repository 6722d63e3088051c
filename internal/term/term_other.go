//go:build !unix

package term

import "errors"

// pixelWidth is a stub for platforms without TIOCGWINSZ.
func pixelWidth() (int, error) {
	return 0, errors.New("pixel size not available on this platform")
}
