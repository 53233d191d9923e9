package channel

import "testing"

func TestUnreliableUnorderedIsFIFOBothWays(t *testing.T) {
	c := NewUnreliableUnordered()
	c.AddToSend(newTestMessage("a"))
	c.AddToSend(newTestMessage("b"))

	if got := c.NextToSend(); string(got.Payload) != "a" {
		t.Fatalf("got %q, want a", got.Payload)
	}
	if got := c.NextToSend(); string(got.Payload) != "b" {
		t.Fatalf("got %q, want b", got.Payload)
	}
	if got := c.NextToSend(); got != nil {
		t.Fatalf("expected nil once drained, got %v", got)
	}
}

func TestUnreliableUnorderedHasNoAcks(t *testing.T) {
	c := NewUnreliableUnordered()
	last, bits := c.GenerateAcks()
	if last != 0 || bits != 0 {
		t.Fatalf("GenerateAcks() = (%d, %d), want (0, 0)", last, bits)
	}
	c.ProcessAcks(5, 0xFF) // must not panic, no-op
}

func TestUnreliableUnorderedDeliversInReceivedOrder(t *testing.T) {
	c := NewUnreliableUnordered()
	c.OnReceive(newTestMessage("first"))
	c.OnReceive(newTestMessage("second"))

	if got := c.Ready(); string(got.Payload) != "first" {
		t.Fatalf("got %q, want first", got.Payload)
	}
	if got := c.Ready(); string(got.Payload) != "second" {
		t.Fatalf("got %q, want second", got.Payload)
	}
}
