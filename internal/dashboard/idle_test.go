package dashboard

import (
	"testing"
	"time"
)

func TestIdleTimer_Advance(t *testing.T) {
	tests := []struct {
		name    string
		ticks   int
		elapsed time.Duration
		hidden  bool
	}{
		{"fresh", 0, 0, false},
		{"one tick", 1, time.Second, false},
		{"nine ticks", 9, 9 * time.Second, false},
		{"ten ticks hides", 10, 10 * time.Second, true},
		{"stays hidden", 15, 10 * time.Second, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timer := idleTimer{}
			for i := 0; i < tt.ticks; i++ {
				timer = timer.advance()
			}
			if timer.elapsed != tt.elapsed {
				t.Errorf("elapsed = %v, want %v", timer.elapsed, tt.elapsed)
			}
			if timer.hidden != tt.hidden {
				t.Errorf("hidden = %v, want %v", timer.hidden, tt.hidden)
			}
		})
	}
}
