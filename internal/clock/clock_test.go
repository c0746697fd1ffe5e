package clock

import (
	"testing"
	"time"
)

func TestFakeAdvanceFiresInDeadlineOrder(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := NewFake(start)

	var order []string
	clk.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	clk.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	clk.AfterFunc(10*time.Second, func() { order = append(order, "late") })

	clk.Advance(5 * time.Second)

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("fired order = %v", order)
	}
	if got := clk.Now(); !got.Equal(start.Add(5 * time.Second)) {
		t.Errorf("Now = %v", got)
	}

	clk.Advance(5 * time.Second)
	if len(order) != 3 || order[2] != "late" {
		t.Errorf("after second advance: %v", order)
	}
}

func TestFakeTimerStop(t *testing.T) {
	clk := NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	fired := false
	tm := clk.AfterFunc(time.Second, func() { fired = true })

	if !tm.Stop() {
		t.Error("first Stop returned false")
	}
	if tm.Stop() {
		t.Error("second Stop returned true")
	}

	clk.Advance(2 * time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
}

func TestFakeCallbackMaySchedule(t *testing.T) {
	clk := NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	var count int
	clk.AfterFunc(time.Second, func() {
		count++
		clk.AfterFunc(time.Second, func() { count++ })
	})

	clk.Advance(3 * time.Second)
	if count != 2 {
		t.Errorf("count = %d, want chained timer to fire too", count)
	}
}
