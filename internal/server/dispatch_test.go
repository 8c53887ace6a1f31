package server

import (
	"net"
	"testing"
	"time"

	"github.com/sebas/vcuswitch/internal/media"
	"github.com/sebas/vcuswitch/internal/wire"
)

// newWiredServer builds a Server with a live loopback socket so dispatch's
// send path can be exercised end to end, with a peer socket standing in
// for the client.
func newWiredServer(t *testing.T) (*Server, *net.UDPConn) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	peer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen peer: %v", err)
	}
	t.Cleanup(func() { _ = peer.Close() })

	s := &Server{
		localIP:   "127.0.0.1",
		localPort: conn.LocalAddr().(*net.UDPAddr).Port,
		fixtures:  testFixtures(),
		gen:       wire.NewIDGenerator(1),
		conn:      conn,
		peerAddr:  peer.LocalAddr().(*net.UDPAddr),
		endpoint:  media.NewEndpoint("127.0.0.1", 0, nil, nil),
	}
	t.Cleanup(func() { _ = s.endpoint.Stop() })
	return s, peer
}

func readOne(t *testing.T, peer *net.UDPConn) *wire.Params {
	t.Helper()
	_ = peer.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 10240)
	n, _, err := peer.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	p, err := wire.Parse(string(buf[:n]))
	if err != nil {
		t.Fatalf("parse response: %v", err)
	}
	return p
}

func TestDispatchLoginRespondsWithFixtureEcho(t *testing.T) {
	s, peer := newWiredServer(t)

	subject := wire.SubjectLogin
	s.dispatch(&wire.Params{
		MethodType: wire.MethodTypeRequest, MessageType: wire.MessageINFO,
		Subject: &subject, LocalUser: "client1", LocalIP: "127.0.0.1", LocalPort: 6000,
		ServerUser: "seat1", CSeq: 1,
	})

	resp := readOne(t, peer)
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Content != s.fixtures.Login {
		t.Errorf("content = %q, want fixture login echo %q", resp.Content, s.fixtures.Login)
	}
	if resp.LocalUser != "seat1" || resp.RemoteUser != "client1" {
		t.Errorf("identity not swapped: local=%q to=%q", resp.LocalUser, resp.RemoteUser)
	}
}

func TestDispatchFrequencySendsOneFragmentPerEntry(t *testing.T) {
	s, peer := newWiredServer(t)

	subject := wire.SubjectFrequency
	s.dispatch(&wire.Params{
		MethodType: wire.MethodTypeRequest, MessageType: wire.MessageINFO,
		Subject: &subject, LocalUser: "client1", LocalIP: "127.0.0.1", LocalPort: 6000,
		ServerUser: "seat1", CSeq: 1,
	})

	want := len(s.fixtures.Frequency)
	for i := 0; i < want; i++ {
		resp := readOne(t, peer)
		if resp.FragmentIndex == nil || *resp.FragmentIndex != i {
			t.Fatalf("fragment %d: FragmentIndex = %v, want %d", i, resp.FragmentIndex, i)
		}
		if resp.FragmentTotal == nil || *resp.FragmentTotal != want {
			t.Fatalf("fragment %d: FragmentTotal = %v, want %d", i, resp.FragmentTotal, want)
		}
		if resp.CSeq != cseqBaseFrequency+i {
			t.Errorf("fragment %d: CSeq = %d, want %d", i, resp.CSeq, cseqBaseFrequency+i)
		}
	}
}

func TestDispatchUnknownSubjectDoesNotPanic(t *testing.T) {
	s, _ := newWiredServer(t)
	subject := "not_a_real_subject"
	s.dispatch(&wire.Params{Subject: &subject})
}

func TestRespondRadioInviteStartsEndpointWithClientPort(t *testing.T) {
	s, peer := newWiredServer(t)

	clientEndpoint := media.NewEndpoint("127.0.0.1", 0, nil, nil)
	if err := clientEndpoint.Start(); err != nil {
		t.Fatalf("clientEndpoint.Start: %v", err)
	}
	t.Cleanup(func() { _ = clientEndpoint.Stop() })

	offer, err := media.BuildSDP("127.0.0.1", clientEndpoint.LocalPort())
	if err != nil {
		t.Fatalf("BuildSDP: %v", err)
	}

	subject := wire.SubjectRadioAction
	s.dispatch(&wire.Params{
		MethodType: wire.MethodTypeRequest, MessageType: wire.MessageINVITE,
		Subject: &subject, LocalUser: "client1", LocalIP: "127.0.0.1", LocalPort: clientEndpoint.LocalPort(),
		ServerUser: "5000", CSeq: 1,
		ContentType: wire.ContentTypeSDP, Content: offer,
	})

	trying := readOne(t, peer)
	if trying.StatusCode != 100 {
		t.Errorf("first response status = %d, want 100", trying.StatusCode)
	}
	ok := readOne(t, peer)
	if ok.StatusCode != 200 || ok.ContentType != wire.ContentTypeSDP {
		t.Errorf("second response = %d %q, want 200 %q", ok.StatusCode, ok.ContentType, wire.ContentTypeSDP)
	}
	if _, err := media.ParseAudioPort(ok.Content); err != nil {
		t.Errorf("answer SDP did not parse: %v", err)
	}
}
