package dashboard

import "time"

const (
	idleTickEvery = time.Second
	idleHideAfter = 10 * time.Second
)

// idleTimer hides passive chrome (the status legend) after ten quiet
// seconds. Any key or mouse event replaces it with a fresh zero value;
// hidden is never unwound in place.
type idleTimer struct {
	elapsed time.Duration
	hidden  bool
}

// advance accounts one tick. Once hidden the timer stops accumulating.
func (t idleTimer) advance() idleTimer {
	if t.hidden {
		return t
	}
	t.elapsed += idleTickEvery
	if t.elapsed >= idleHideAfter {
		t.hidden = true
	}
	return t
}
