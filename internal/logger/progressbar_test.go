package logger

import (
	"strings"
	"sync"
	"testing"
)

// TestProgressBarRender verifies correct ASCII bar rendering
func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		width    int
		expected string
	}{
		{name: "empty progress", current: 0, total: 10, width: 10, expected: "[          ] 0/10 (0%)"},
		{name: "half progress", current: 5, total: 10, width: 10, expected: "[=====     ] 5/10 (50%)"},
		{name: "full progress", current: 10, total: 10, width: 10, expected: "[==========] 10/10 (100%)"},
		{name: "quarter progress", current: 2, total: 8, width: 8, expected: "[==      ] 2/8 (25%)"},
		{name: "overshoot clamps", current: 12, total: 10, width: 4, expected: "[====] 12/10 (100%)"},
		{name: "zero total", current: 0, total: 0, width: 4, expected: "[    ] 0/0 (0%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			pb.Update(tt.current)
			if got := pb.Render(); got != tt.expected {
				t.Errorf("Render() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestProgressBarDefaultWidth(t *testing.T) {
	pb := NewProgressBar(2, 0, false)
	pb.Update(1)
	if got := pb.Render(); got != "[=====     ] 1/2 (50%)" {
		t.Errorf("Render() = %q", got)
	}
}

func TestProgressBarColors(t *testing.T) {
	running := NewProgressBar(4, 4, true)
	running.Update(1)
	if got := running.Render(); !strings.HasPrefix(got, "\x1b[36m") {
		t.Errorf("in-progress bar should be cyan, got %q", got)
	}

	done := NewProgressBar(4, 4, true)
	done.Update(4)
	if got := done.Render(); !strings.HasPrefix(got, "\x1b[32m") {
		t.Errorf("complete bar should be green, got %q", got)
	}

	plain := NewProgressBar(4, 4, false)
	if strings.Contains(plain.Render(), "\x1b[") {
		t.Error("color disabled bar contains ANSI codes")
	}
}

func TestProgressBarPercentage(t *testing.T) {
	pb := NewProgressBar(3, 10, false)
	for i, want := range []int{0, 33, 66, 100} {
		pb.Update(i)
		if got := pb.Percentage(); got != want {
			t.Errorf("Percentage() at %d = %d, want %d", i, got, want)
		}
	}
}

func TestProgressBarConcurrency(t *testing.T) {
	pb := NewProgressBar(100, 10, false)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pb.Increment()
			_ = pb.Render()
		}()
	}
	wg.Wait()

	if got := pb.Percentage(); got != 100 {
		t.Errorf("after concurrent increments Percentage() = %d, want 100", got)
	}
}
