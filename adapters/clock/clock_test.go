package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/artpar/datagate/adapters/clock"
)

func TestReal_Now(t *testing.T) {
	c := clock.Real{}

	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", got, before, after)
	}
}

func TestReal_Sleep(t *testing.T) {
	c := clock.Real{}

	start := time.Now()
	if err := c.Sleep(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Sleep() returned after %v, want at least 10ms", elapsed)
	}
}

func TestReal_Sleep_Cancelled(t *testing.T) {
	c := clock.Real{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := c.Sleep(ctx, time.Minute)
	if err == nil {
		t.Fatal("Sleep() error = nil on cancelled context, want context error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Sleep() took %v after cancellation, want immediate return", elapsed)
	}
}

func TestReal_Sleep_ZeroDuration(t *testing.T) {
	c := clock.Real{}
	if err := c.Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) error = %v, want nil", err)
	}
}

func TestFake_NowAndSet(t *testing.T) {
	fixedTime := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c := clock.NewFake(fixedTime)

	if got := c.Now(); !got.Equal(fixedTime) {
		t.Errorf("Now() = %v, want %v", got, fixedTime)
	}

	newTime := fixedTime.AddDate(0, 1, 0)
	c.Set(newTime)
	if got := c.Now(); !got.Equal(newTime) {
		t.Errorf("Now() after Set = %v, want %v", got, newTime)
	}
}

func TestFake_Advance(t *testing.T) {
	initial := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewFake(initial)

	c.Advance(time.Hour)
	c.Advance(30 * time.Minute)

	expected := initial.Add(time.Hour + 30*time.Minute)
	if got := c.Now(); !got.Equal(expected) {
		t.Errorf("Now() = %v, want %v", got, expected)
	}
}

func TestFake_SleepAdvancesWithoutWaiting(t *testing.T) {
	initial := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewFake(initial)

	start := time.Now()
	if err := c.Sleep(context.Background(), time.Hour); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("fake Sleep actually waited")
	}
	if got := c.Now(); !got.Equal(initial.Add(time.Hour)) {
		t.Errorf("Now() = %v, want advanced by an hour", got)
	}
}

func TestFake_SleepCancelled(t *testing.T) {
	c := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Sleep(ctx, time.Hour); err == nil {
		t.Error("Sleep() error = nil on cancelled context, want context error")
	}
}

func TestFake_ConcurrentAccess(t *testing.T) {
	c := clock.NewFake(time.Now())

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = c.Now()
				c.Advance(time.Second)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
	// Test passes if no race conditions
}
