package app_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/fd1az/swap-router/business/swap/app"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := app.NewDebouncer()

	var runs atomic.Int32
	var lastGen atomic.Uint64
	for i := 0; i < 5; i++ {
		d.Trigger(30*time.Millisecond, func(gen uint64) {
			runs.Add(1)
			lastGen.Store(gen)
		})
	}

	time.Sleep(100 * time.Millisecond)

	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
	if got := lastGen.Load(); got != 5 {
		t.Errorf("gen = %d, want 5", got)
	}
}

func TestDebouncer_ZeroDelayStillAsync(t *testing.T) {
	d := app.NewDebouncer()

	done := make(chan uint64, 1)
	d.Trigger(0, func(gen uint64) { done <- gen })

	select {
	case gen := <-done:
		if gen != 1 {
			t.Errorf("gen = %d, want 1", gen)
		}
	case <-time.After(time.Second):
		t.Fatal("zero-delay trigger never ran")
	}
}

func TestDebouncer_CurrentTracksGeneration(t *testing.T) {
	d := app.NewDebouncer()

	gen1 := d.Trigger(time.Hour, func(uint64) {})
	if !d.Current(gen1) {
		t.Error("gen1 should be current")
	}

	gen2 := d.Trigger(time.Hour, func(uint64) {})
	if d.Current(gen1) {
		t.Error("gen1 should be superseded")
	}
	if !d.Current(gen2) {
		t.Error("gen2 should be current")
	}
	d.Cancel()
}

func TestDebouncer_CancelInvalidates(t *testing.T) {
	d := app.NewDebouncer()

	var ran atomic.Bool
	gen := d.Trigger(20*time.Millisecond, func(uint64) { ran.Store(true) })
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	if ran.Load() {
		t.Error("cancelled run still fired")
	}
	if d.Current(gen) {
		t.Error("cancel should invalidate outstanding generations")
	}
}
