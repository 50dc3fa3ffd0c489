package calls

import "testing"

func TestPeerOf(t *testing.T) {
	rec := testRecord("c1", "a", "b")

	peer, ok := rec.PeerOf("a")
	if !ok || peer.ID != "b" {
		t.Fatalf("peer of a: %+v ok=%v", peer, ok)
	}
	peer, ok = rec.PeerOf("b")
	if !ok || peer.ID != "a" {
		t.Fatalf("peer of b: %+v ok=%v", peer, ok)
	}
	if _, ok := rec.PeerOf("stranger"); ok {
		t.Fatalf("stranger has no peer")
	}
}

func TestRedactedFor(t *testing.T) {
	rec := testRecord("c1", "a", "b")

	callerView := rec.RedactedFor("a")
	if callerView.Caller.Token != "t1" || callerView.Callee.Token != "" {
		t.Fatalf("caller view: %+v", callerView)
	}

	calleeView := rec.RedactedFor("b")
	if calleeView.Callee.Token != "t2" || calleeView.Caller.Token != "" {
		t.Fatalf("callee view: %+v", calleeView)
	}

	// The original is untouched.
	if rec.Caller.Token != "t1" || rec.Callee.Token != "t2" {
		t.Fatalf("redaction mutated the source record")
	}
}

func TestChannelNameFor(t *testing.T) {
	if got := ChannelNameFor("abc"); got != "call-abc" {
		t.Fatalf("channel name = %q", got)
	}
}
