package wire

import (
	"testing"

	"github.com/netplay-go/netsim/netbuf"
)

func TestMessageSerializeDeserializeRoundTrip(t *testing.T) {
	m := &Message{
		Kind:     KindConnectionChallengeResponse,
		Flags:    FlagReliable | FlagOrdered,
		Sequence: 42,
		ClientSalt: 0x1122334455667788,
		ServerSalt: 0x8877665544332211,
		Payload:    []byte("hello"),
	}

	b := netbuf.New()
	m.Serialize(b)

	out := &Message{}
	if err := out.Deserialize(netbuf.Wrap(b.Bytes())); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if out.Kind != m.Kind || out.Flags != m.Flags || out.Sequence != m.Sequence {
		t.Fatalf("header mismatch: got %+v", out)
	}
	if out.ClientSalt != m.ClientSalt || out.ServerSalt != m.ServerSalt {
		t.Fatalf("salt mismatch: got %+v", out)
	}
	if string(out.Payload) != "hello" {
		t.Fatalf("payload = %q, want hello", out.Payload)
	}
}

func TestMessageDenyReasonRoundTrip(t *testing.T) {
	for _, kind := range []Kind{KindConnectionDenied, KindDisconnection} {
		m := &Message{Kind: kind, DenyReason: 3}
		b := netbuf.New()
		m.Serialize(b)

		out := &Message{}
		if err := out.Deserialize(netbuf.Wrap(b.Bytes())); err != nil {
			t.Fatalf("Deserialize: %v", err)
		}
		if out.DenyReason != 3 {
			t.Errorf("kind %v: DenyReason = %d, want 3", kind, out.DenyReason)
		}
	}
}

func TestMessageSizeMatchesSerializedLength(t *testing.T) {
	m := &Message{Kind: KindInGame, Payload: []byte("payload")}
	b := netbuf.New()
	m.Serialize(b)
	if got, want := m.Size(), b.Len(); got != want {
		t.Fatalf("Size() = %d, serialized length = %d", got, want)
	}
}

func TestTwoMessagesPackBackToBackInOneBuffer(t *testing.T) {
	b := netbuf.New()
	first := &Message{Kind: KindInGame, Payload: []byte("a")}
	second := &Message{Kind: KindInGameResponse, Payload: []byte("bb")}
	first.Serialize(b)
	second.Serialize(b)

	reader := netbuf.Wrap(b.Bytes())
	gotFirst := &Message{}
	if err := gotFirst.Deserialize(reader); err != nil {
		t.Fatalf("first Deserialize: %v", err)
	}
	gotSecond := &Message{}
	if err := gotSecond.Deserialize(reader); err != nil {
		t.Fatalf("second Deserialize: %v", err)
	}
	if string(gotFirst.Payload) != "a" || string(gotSecond.Payload) != "bb" {
		t.Fatalf("got %q, %q", gotFirst.Payload, gotSecond.Payload)
	}
}
