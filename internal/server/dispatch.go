package server

import (
	"github.com/sebas/vcuswitch/internal/media"
	"github.com/sebas/vcuswitch/internal/wire"
)

// Per-subject starting CSeq for a fixture's fragment run. The original
// declares one of these (function) without ever using it, reusing the
// request's own CSeq for every fragment instead; this port increments a
// real per-subject counter for all five multi-fragment subjects, so
// fragment numbering is no longer a place where the original's behavior
// happened to differ by subject for no documented reason.
const (
	cseqBasePhone     = 513
	cseqBaseFrequency = 1025
	cseqBaseRadio     = 1793
	cseqBaseFunction  = 257
	cseqBaseAllFreq   = 1025
)

// swapIdentity builds the base response Params common to every reply:
// party roles swapped (the server's own id becomes LocalUser, the
// requester's becomes ServerUser), echoing Branch/CallID/Tag/CSeq/
// MessageType from the request, per the dialect's request/response
// pairing convention.
func (s *Server) swapIdentity(recv *wire.Params) wire.Params {
	return wire.Params{
		MethodType:   wire.MethodTypeResponse,
		MessageType:  recv.MessageType,
		Branch:       recv.Branch,
		CallID:       recv.CallID,
		CSeq:         recv.CSeq,
		Tag:          recv.Tag,
		LocalUser:    recv.ServerUser,
		LocalIP:      s.localIP,
		LocalPort:    s.localPort,
		ServerUser:   recv.LocalUser,
		ServerIP:     recv.LocalIP,
		ServerPort:   recv.LocalPort,
		MaxForwards:  70,
		StatusCode:   200,
		ReasonPhrase: "OK",
	}
}

func (s *Server) send(p wire.Params) {
	p.FillDefaults(s.gen)
	msg, err := p.Encode()
	if err != nil {
		s.logWarn("encode response failed", "error", err)
		return
	}
	if _, err := s.conn.WriteToUDP([]byte(msg), s.peerAddr); err != nil {
		s.logWarn("send response failed", "error", err)
	}
}

// respondAlive answers the vcu_login/vcu_logout heartbeat with the
// fixture's opaque server_ip echo string.
func (s *Server) respondAlive(recv *wire.Params) {
	p := s.swapIdentity(recv)
	p.Subject = recv.Subject
	p.ContentType = wire.ContentTypeServerIP
	if *recv.Subject == wire.SubjectLogin {
		p.Content = s.fixtures.Login
	} else {
		p.Content = s.fixtures.Logout
	}
	s.send(p)
}

// respondRegister answers REGISTER with the fixture's single role_info
// record.
func (s *Server) respondRegister(recv *wire.Params) {
	p := s.swapIdentity(recv)
	expires := 5
	p.MessageType = wire.MessageREGISTER
	p.Expires = &expires
	p.Contact = stringPtr("")
	p.ContentType = wire.ContentTypeRoleInfo
	p.Content = s.fixtures.RoleInfo
	s.send(p)
}

// respondCatalog sends one INFO response per fixture fragment, each
// tagged with its position via X-Fragment-Index/-Total so the client can
// recognize the last one without relying on CSeq continuity.
func (s *Server) respondCatalog(recv *wire.Params, fragments []Fragment, cseqBase int, contentType string) {
	total := len(fragments)
	for i, frag := range fragments {
		p := s.swapIdentity(recv)
		p.MessageType = wire.MessageINFO
		p.CSeq = cseqBase + i
		p.ContentType = contentType
		p.Content = frag.Payload
		idx := i
		p.FragmentIndex = &idx
		tot := total
		p.FragmentTotal = &tot
		s.send(p)
	}
}

// respondRadio implements the radio-selection side of C5: 100 Trying
// then the SDP answer on INVITE (starting this server's RTP endpoint
// against whatever port the client's offer names), or a bare 200 OK on a
// bare REFER (join without a new media session).
func (s *Server) respondRadio(recv *wire.Params) {
	switch recv.MessageType {
	case wire.MessageINVITE:
		trying := s.swapIdentity(recv)
		trying.MessageType = wire.MessageINVITE
		trying.StatusCode = 100
		trying.ReasonPhrase = "Trying"
		s.send(trying)

		clientPort, err := media.ParseAudioPort(recv.Content)
		if err != nil {
			s.logWarn("radio INVITE carried unparseable SDP offer", "error", err)
			return
		}
		s.endpoint.SetRemote(recv.LocalIP, clientPort)
		if err := s.endpoint.Start(); err != nil {
			s.logWarn("failed to start RTP endpoint", "error", err)
			return
		}

		sdpBody, err := media.BuildSDP(s.localIP, s.localRTPPort)
		if err != nil {
			s.logWarn("failed to build SDP answer", "error", err)
			return
		}
		ok := s.swapIdentity(recv)
		ok.MessageType = wire.MessageINVITE
		ok.Subject = recv.Subject
		ok.Contact = stringPtr("")
		ok.Allow = s.allow
		ok.Supported = s.supported
		ok.ContentType = wire.ContentTypeSDP
		ok.Content = sdpBody
		s.send(ok)

	case wire.MessageREFER:
		p := s.swapIdentity(recv)
		p.MessageType = wire.MessageREFER
		p.Subject = recv.Subject
		s.send(p)
	}
}

// respondBye acknowledges a release: a REFER-wrapped BYE gets a bare 200
// OK, a plain BYE gets 200 OK and stops the RTP endpoint.
func (s *Server) respondBye(recv *wire.Params) {
	switch recv.MessageType {
	case wire.MessageREFER:
		p := s.swapIdentity(recv)
		p.MessageType = wire.MessageREFER
		s.send(p)

	case wire.MessageBYE:
		p := s.swapIdentity(recv)
		p.MessageType = wire.MessageBYE
		p.Subject = recv.Subject
		s.send(p)
		if err := s.endpoint.Stop(); err != nil {
			s.logWarn("failed to stop RTP endpoint", "error", err)
		}
	}
}

// dispatch routes one parsed request to its handler by subject, mirroring
// sip_server.py's handle_message if/elif chain.
func (s *Server) dispatch(recv *wire.Params) {
	if recv.Subject == nil {
		s.logWarn("request carried no subject, dropping")
		return
	}

	switch *recv.Subject {
	case wire.SubjectLogin, wire.SubjectLogout:
		s.respondAlive(recv)
	case wire.SubjectRegister:
		s.respondRegister(recv)
	case wire.SubjectPhone:
		s.respondCatalog(recv, s.fixtures.Phone, cseqBasePhone, wire.ContentTypePhoneBt)
	case wire.SubjectFrequency:
		s.respondCatalog(recv, s.fixtures.Frequency, cseqBaseFrequency, wire.ContentTypeFreqBt)
	case wire.SubjectRadio:
		s.respondCatalog(recv, s.fixtures.Radio, cseqBaseRadio, wire.ContentTypeRadioBt)
	case wire.SubjectFunction:
		s.respondCatalog(recv, s.fixtures.Function, cseqBaseFunction, wire.ContentTypeFuncBt)
	case wire.SubjectAllFreq:
		s.respondCatalog(recv, s.fixtures.AllFreq, cseqBaseAllFreq, wire.ContentTypeFreqBt)
	case wire.SubjectRadioAction:
		switch {
		case recv.MessageType == wire.MessageINVITE,
			recv.MessageType == wire.MessageREFER && recv.Method == nil:
			s.respondRadio(recv)
		case recv.MessageType == wire.MessageBYE,
			recv.MessageType == wire.MessageREFER && recv.Method != nil && *recv.Method == wire.MessageBYE:
			s.respondBye(recv)
		}
	default:
		s.logWarn("unhandled subject", "subject", *recv.Subject)
	}
}

func stringPtr(s string) *string { return &s }
