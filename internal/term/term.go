// Package term queries the terminal's pixel geometry. The dashboard's
// narrow-viewport breakpoint is defined in pixels, so cell counts alone
// are not enough.
package term

// defaultCellWidth approximates one terminal cell when the terminal does
// not report pixel dimensions. Common for 80-column terminals with
// standard fonts.
const defaultCellWidth = 8

// queryPixelWidth is swapped in tests.
var queryPixelWidth = pixelWidth

// PixelWidth reports the terminal width in pixels. It prefers the real
// pixel dimensions from the terminal driver and falls back to
// approximating cols cells at defaultCellWidth each.
func PixelWidth(cols int) int {
	if w, err := queryPixelWidth(); err == nil && w > 0 {
		return w
	}
	if cols < 0 {
		cols = 0
	}
	return cols * defaultCellWidth
}
