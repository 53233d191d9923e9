package wire

import "testing"

func TestSplitFitsInOnePieceWhenSmall(t *testing.T) {
	fr := NewFragmenter(NewFactory())
	msgs := fr.Split(KindReplication, FlagReliable, []byte("small payload"), DefaultMaxPacketSize)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].IsFragment() {
		t.Fatal("small payload should not be tagged as a fragment")
	}
	if string(msgs[0].Payload) != "small payload" {
		t.Fatalf("payload mismatch: %q", msgs[0].Payload)
	}
}

func TestSplitAndReassembleRoundTrip(t *testing.T) {
	fr := NewFragmenter(NewFactory())
	big := make([]byte, 4000)
	for i := range big {
		big[i] = byte(i)
	}

	mtu := 200
	msgs := fr.Split(KindReplication, FlagReliable, big, mtu)
	if len(msgs) < 2 {
		t.Fatalf("expected payload to split into multiple fragments, got %d", len(msgs))
	}
	for _, m := range msgs {
		if !m.IsFragment() {
			t.Fatal("oversized payload must produce FlagFragment messages")
		}
		if m.Flags&FlagReliable == 0 {
			t.Fatal("original flags must survive fragmentation")
		}
	}

	var out []byte
	var gotKind Kind
	var gotFlags uint8
	var complete bool
	for _, m := range msgs {
		out, gotKind, gotFlags, complete = fr.Add(m)
	}
	if !complete {
		t.Fatal("expected reassembly to complete after the last fragment")
	}
	if gotKind != KindReplication || gotFlags != FlagReliable {
		t.Fatalf("kind/flags mismatch: %v %v", gotKind, gotFlags)
	}
	if len(out) != len(big) {
		t.Fatalf("reassembled length mismatch: got %d want %d", len(out), len(big))
	}
	for i := range big {
		if out[i] != big[i] {
			t.Fatalf("byte mismatch at %d", i)
		}
	}
}

func TestReassembleOutOfOrderArrival(t *testing.T) {
	fr := NewFragmenter(NewFactory())
	big := []byte("this payload is split into a few small fragments for the test")
	msgs := fr.Split(KindInGame, 0, big, 24)
	if len(msgs) < 3 {
		t.Fatalf("expected at least 3 fragments, got %d", len(msgs))
	}

	msgs[1], msgs[0] = msgs[0], msgs[1]

	var out []byte
	var ok bool
	for _, m := range msgs {
		out, _, _, ok = fr.Add(m)
	}
	if !ok || string(out) != string(big) {
		t.Fatalf("out-of-order reassembly failed: ok=%v out=%q", ok, out)
	}
}

func TestGetSafePayloadSizeShrinksWithMTU(t *testing.T) {
	if GetSafePayloadSize(1200) <= GetSafePayloadSize(576) {
		t.Fatal("larger MTU should allow a larger safe payload")
	}
	if GetSafePayloadSize(0) != 0 {
		t.Fatalf("degenerate MTU should floor at 0, got %d", GetSafePayloadSize(0))
	}
}
