package game

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerArmFires(t *testing.T) {
	rs := NewRoundScheduler()
	fired := make(chan struct{})
	rs.Arm("ABCD", 10*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer should have fired")
	}
}

func TestSchedulerCancel(t *testing.T) {
	rs := NewRoundScheduler()
	var fired atomic.Int32
	rs.Arm("ABCD", 20*time.Millisecond, func() { fired.Add(1) })
	rs.Cancel("ABCD")
	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("canceled timer should not have fired")
	}
}

func TestSchedulerArmSupersedes(t *testing.T) {
	rs := NewRoundScheduler()
	var first, second atomic.Int32
	rs.Arm("ABCD", 30*time.Millisecond, func() { first.Add(1) })
	rs.Arm("ABCD", 10*time.Millisecond, func() { second.Add(1) })
	time.Sleep(80 * time.Millisecond)
	if first.Load() != 0 {
		t.Fatal("superseded timer should not have fired")
	}
	if second.Load() != 1 {
		t.Fatalf("replacement timer should have fired once, got %d", second.Load())
	}
}

func TestSchedulerIndependentSessions(t *testing.T) {
	rs := NewRoundScheduler()
	var a, b atomic.Int32
	rs.Arm("AAAA", 10*time.Millisecond, func() { a.Add(1) })
	rs.Arm("BBBB", 10*time.Millisecond, func() { b.Add(1) })
	rs.Cancel("AAAA")
	time.Sleep(50 * time.Millisecond)
	if a.Load() != 0 {
		t.Fatal("canceled session timer should not fire")
	}
	if b.Load() != 1 {
		t.Fatal("other session timer should be unaffected by cancel")
	}
}
