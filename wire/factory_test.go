package wire

import "testing"

func TestFactoryLendResetsPriorState(t *testing.T) {
	f := NewFactory()
	m := f.Lend(KindInGame)
	m.Sequence = 7
	m.Payload = append(m.Payload, 1, 2, 3)
	f.Release(m)

	again := f.Lend(KindInGame)
	if again.Sequence != 0 || len(again.Payload) != 0 {
		t.Fatalf("expected reset message, got %+v", again)
	}
}

func TestFactoryOutstandingTracksLendRelease(t *testing.T) {
	f := NewFactory()
	a := f.Lend(KindInGame)
	b := f.Lend(KindReplication)
	if got := f.Outstanding(); got != 2 {
		t.Fatalf("Outstanding() = %d, want 2", got)
	}
	f.Release(a)
	f.Release(b)
	if got := f.Outstanding(); got != 0 {
		t.Fatalf("Outstanding() = %d, want 0", got)
	}
}

func TestAssertBalancedPanicsOnLeak(t *testing.T) {
	f := NewFactory()
	f.Lend(KindInGame)

	defer func() {
		if recover() == nil {
			t.Fatal("expected AssertBalanced to panic on an outstanding lend")
		}
	}()
	f.AssertBalanced()
}
