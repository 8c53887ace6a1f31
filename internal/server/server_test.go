package server

import (
	"testing"

	"github.com/sebas/vcuswitch/internal/wire"
)

func testFixtures() *Fixtures {
	return &Fixtures{
		RoleInfo: wire.EncodeRoleInfo(wire.RoleInfo{
			ChannelNum: [4]string{"316", "317", "318", "319"},
			Roles:      []string{"12:OP"},
		}),
		Login:  "127.0.0.1",
		Logout: "127.0.0.1",
		Frequency: []Fragment{
			{Name: "frag0", Payload: wire.EncodeFreqBtnInfo([]wire.FreqBtnInfo{{Position: 0, Name: "ch1", Freq: "151.000", CanUse: 1}})},
			{Name: "frag1", Payload: wire.EncodeFreqBtnInfo([]wire.FreqBtnInfo{{Position: 1, Name: "ch2", Freq: "152.000", CanUse: 1}})},
		},
	}
}

func newTestServer() *Server {
	return &Server{
		localIP:   "127.0.0.1",
		localPort: 5060,
		fixtures:  testFixtures(),
		gen:       wire.NewIDGenerator(1),
	}
}

func TestSwapIdentitySwapsLocalAndServerUser(t *testing.T) {
	s := newTestServer()
	recv := &wire.Params{
		LocalUser:  "client1",
		LocalIP:    "10.0.0.5",
		LocalPort:  5070,
		ServerUser: "seat1",
		Branch:     "z9hG4bK-1",
		CallID:     "1@10.0.0.5",
		CSeq:       7,
		Tag:        "123",
		MessageType: wire.MessageINFO,
	}

	p := s.swapIdentity(recv)

	if p.LocalUser != "seat1" {
		t.Errorf("LocalUser = %q, want seat1", p.LocalUser)
	}
	if p.ServerUser != "client1" {
		t.Errorf("ServerUser = %q, want client1", p.ServerUser)
	}
	if p.ServerIP != "10.0.0.5" || p.ServerPort != 5070 {
		t.Errorf("response not addressed back to requester: %s:%d", p.ServerIP, p.ServerPort)
	}
	if p.CSeq != 7 || p.Branch != "z9hG4bK-1" || p.Tag != "123" {
		t.Errorf("response did not echo request's branch/cseq/tag: %+v", p)
	}
	if p.StatusCode != 200 || p.ReasonPhrase != "OK" {
		t.Errorf("default response status = %d %q, want 200 OK", p.StatusCode, p.ReasonPhrase)
	}
}

func TestRespondCatalogNumbersFragmentsByIndex(t *testing.T) {
	s, peer := newWiredServer(t)
	var sent []wire.Params

	// respondCatalog's send path needs a live UDP conn, so read each
	// fragment back from the peer socket newWiredServer wires up.
	fragments := s.fixtures.Frequency
	for i, frag := range fragments {
		if frag.Payload == "" {
			t.Fatalf("fixture fragment %d has no payload", i)
		}
	}
	s.respondCatalog(&wire.Params{
		LocalUser: "client1", LocalIP: "127.0.0.1", LocalPort: 6000,
		ServerUser: "seat1", CSeq: 1,
	}, fragments, cseqBaseFrequency, wire.ContentTypeFreqBt)
	for range fragments {
		sent = append(sent, *readOne(t, peer))
	}

	if len(sent) != 2 {
		t.Fatalf("len(sent) = %d, want 2", len(sent))
	}
	if *sent[0].FragmentIndex != 0 || *sent[1].FragmentIndex != 1 {
		t.Errorf("fragment indices = %d, %d, want 0, 1", *sent[0].FragmentIndex, *sent[1].FragmentIndex)
	}
	if *sent[0].FragmentTotal != 2 || *sent[1].FragmentTotal != 2 {
		t.Errorf("fragment totals = %d, %d, want 2, 2", *sent[0].FragmentTotal, *sent[1].FragmentTotal)
	}
}
