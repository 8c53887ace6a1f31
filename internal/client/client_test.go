package client

import (
	"sync"
	"testing"

	"github.com/sebas/vcuswitch/internal/media"
	"github.com/sebas/vcuswitch/internal/wire"
)

func encodeResponse(t *testing.T, p *wire.Params) string {
	t.Helper()
	p.MethodType = wire.MethodTypeResponse
	p.StatusCode = 200
	p.ReasonPhrase = "OK"
	p.LocalUser = "server"
	p.LocalIP = "127.0.0.1"
	p.LocalPort = 5060
	p.ServerUser = "seat1"
	p.ServerIP = "127.0.0.1"
	p.ServerPort = 5061
	p.MaxForwards = 70
	p.FillDefaults(wire.NewIDGenerator(1))
	msg, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return msg
}

func TestHandleMessageDropsResponseWithMismatchedCSeq(t *testing.T) {
	c := &Client{radioDict: make(map[string]Radio), endpoint: media.NewEndpoint("127.0.0.1", 0, nil, nil)}
	c.cond = sync.NewCond(&c.mu)

	login := wire.SubjectLogin
	c.pending = &PendingTransaction{Params: &wire.Params{Subject: &login, CSeq: 5}}

	msg := encodeResponse(t, &wire.Params{MessageType: wire.MessageINFO, CSeq: 9})
	c.handleMessage(msg)

	if c.status != "" {
		t.Errorf("status = %q, want untouched by a cseq-mismatched response", c.status)
	}
	if c.pending == nil {
		t.Error("pending was cleared by a response whose cseq did not match")
	}
}

func TestHandleMessageDispatchesResponseWithMatchingCSeq(t *testing.T) {
	c := &Client{radioDict: make(map[string]Radio), endpoint: media.NewEndpoint("127.0.0.1", 0, nil, nil)}
	c.cond = sync.NewCond(&c.mu)

	login := wire.SubjectLogin
	c.pending = &PendingTransaction{Params: &wire.Params{Subject: &login, CSeq: 5}}

	msg := encodeResponse(t, &wire.Params{MessageType: wire.MessageINFO, CSeq: 5})
	c.handleMessage(msg)

	if c.status != "online" {
		t.Errorf("status = %q, want online after matching login response", c.status)
	}
	if c.pending != nil {
		t.Error("pending not cleared after a final response with matching cseq")
	}
}
