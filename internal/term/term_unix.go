//go:build unix

package term

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// pixelWidth reads the terminal width in pixels via TIOCGWINSZ. Most
// terminal emulators fill Xpixel; multiplexers and dumb terminals leave
// it zero, which callers treat as "not reported".
func pixelWidth() (int, error) {
	f, err := os.Open("/dev/tty")
	if err != nil {
		return 0, fmt.Errorf("open /dev/tty: %w", err)
	}
	defer f.Close()

	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0, fmt.Errorf("TIOCGWINSZ: %w", err)
	}
	if ws.Xpixel == 0 {
		return 0, fmt.Errorf("terminal does not report pixel size")
	}
	return int(ws.Xpixel), nil
}
