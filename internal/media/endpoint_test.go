package media

import (
	"testing"
	"time"
)

func TestEndpointSendReceiveRoundTrip(t *testing.T) {
	a := NewEndpoint("127.0.0.1", 0, nil, nil)
	if err := a.Start(); err != nil {
		t.Fatalf("Start a: %v", err)
	}
	defer a.Stop()

	sink := NewRingSink(16)
	b := NewEndpoint("127.0.0.1", 0, nil, sink)
	if err := b.Start(); err != nil {
		t.Fatalf("Start b: %v", err)
	}
	defer b.Stop()

	a.SetRemote("127.0.0.1", b.LocalPort())

	select {
	case <-sink.Frames():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a decoded frame to reach the sink")
	}
}

func TestEndpointStartStopIdempotent(t *testing.T) {
	e := NewEndpoint("127.0.0.1", 0, nil, nil)
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestRMSDetectsVoiceActivity(t *testing.T) {
	silence := make([]byte, 320)
	if HasVoiceActivity(silence) {
		t.Error("silence should not trigger voice activity")
	}

	loud := make([]byte, 320)
	for i := 0; i < len(loud); i += 2 {
		loud[i] = 0x00
		loud[i+1] = 0x7F // large positive 16-bit sample
	}
	if !HasVoiceActivity(loud) {
		t.Error("loud frame should trigger voice activity")
	}
}
