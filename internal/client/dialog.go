package client

import (
	"encoding/base64"
	"strings"

	"github.com/sebas/vcuswitch/internal/logger"
	"github.com/sebas/vcuswitch/internal/media"
	"github.com/sebas/vcuswitch/internal/wire"
)

// KeepAlive sends the heartbeat INFO: subject vcu_login while already
// online, vcu_logout otherwise. Success toggles status accordingly.
func (c *Client) KeepAlive() error {
	c.mu.Lock()
	online := c.status != "offline"
	c.mu.Unlock()

	subject := wire.SubjectLogout
	if online {
		subject = wire.SubjectLogin
	}
	expires := 5
	p := &wire.Params{
		MethodType:  wire.MethodTypeRequest,
		MessageType: wire.MessageINFO,
		CSeq:        c.nextCSeq(),
		LocalUser:   c.user,
		LocalIP:     c.localIP,
		LocalPort:   c.localPort,
		ServerUser:  c.user,
		ServerIP:    c.serverIP,
		ServerPort:  c.serverPort,
		MaxForwards: 70,
		Subject:     &subject,
		Expires:     &expires,
	}
	return c.sendRequest(p)
}

// Register sends REGISTER with the base64(user) password and cwp=user
// dialect extension. Success populates channel_list/selected_role and
// transitions status to online.
func (c *Client) Register() error {
	expires := 5
	password := base64.StdEncoding.EncodeToString([]byte(c.user))
	cwp := c.user
	subject := wire.SubjectRegister
	p := &wire.Params{
		MethodType:  wire.MethodTypeRequest,
		MessageType: wire.MessageREGISTER,
		CSeq:        c.nextCSeq(),
		LocalUser:   c.user,
		LocalIP:     c.localIP,
		LocalPort:   c.localPort,
		ServerUser:  c.user,
		ServerIP:    c.serverIP,
		ServerPort:  c.serverPort,
		MaxForwards: 70,
		Subject:     &subject,
		Expires:     &expires,
		Password:    &password,
		CWP:         &cwp,
	}
	return c.sendRequest(p)
}

// sendCatalogInfo issues a plain INFO request for one of the catalog
// subjects, carrying the current selected_role as roleid.
func (c *Client) sendCatalogInfo(subject string) error {
	c.resetCatalogAccumulation(subject)

	c.mu.Lock()
	roleID := c.selectedRole
	c.mu.Unlock()

	p := &wire.Params{
		MethodType:  wire.MethodTypeRequest,
		MessageType: wire.MessageINFO,
		CSeq:        c.nextCSeq(),
		LocalUser:   c.user,
		LocalIP:     c.localIP,
		LocalPort:   c.localPort,
		ServerUser:  c.user,
		ServerIP:    c.serverIP,
		ServerPort:  c.serverPort,
		MaxForwards: 70,
		Subject:     strPtr(subject),
	}
	if roleID != "" {
		p.RoleID = strPtr(roleID)
	}
	return c.sendRequest(p)
}

// GetPhoneBtn fetches the phone button catalog.
func (c *Client) GetPhoneBtn() error { return c.sendCatalogInfo(wire.SubjectPhone) }

// GetFrequencyBtn fetches the frequency button catalog.
func (c *Client) GetFrequencyBtn() error { return c.sendCatalogInfo(wire.SubjectFrequency) }

// GetFunctionBtn fetches the function button catalog.
func (c *Client) GetFunctionBtn() error { return c.sendCatalogInfo(wire.SubjectFunction) }

// GetRadioBtn fetches the radio catalog, restricted to the frequencies
// already known from a prior GetFrequencyBtn call.
func (c *Client) GetRadioBtn() error {
	c.resetCatalogAccumulation(wire.SubjectRadio)

	c.mu.Lock()
	roleID := c.selectedRole
	freq := strings.Join(c.frequencyList, "+")
	c.mu.Unlock()

	subject := wire.SubjectRadio
	p := &wire.Params{
		MethodType:  wire.MethodTypeRequest,
		MessageType: wire.MessageINFO,
		CSeq:        c.nextCSeq(),
		LocalUser:   c.user,
		LocalIP:     c.localIP,
		LocalPort:   c.localPort,
		ServerUser:  c.user,
		ServerIP:    c.serverIP,
		ServerPort:  c.serverPort,
		MaxForwards: 70,
		Subject:     &subject,
		ContentType: wire.ContentTypeFrequency,
		Content:     freq,
	}
	if roleID != "" {
		p.RoleID = strPtr(roleID)
	}
	return c.sendRequest(p)
}

// GetAllFrequencyBtn fetches every frequency the server knows of,
// addressed from the first registered channel rather than the user id -
// the one place the original departs from its own local_user convention.
func (c *Client) GetAllFrequencyBtn() error {
	c.resetCatalogAccumulation(wire.SubjectAllFreq)

	c.mu.Lock()
	localUser := c.channelList[0]
	roleID := c.selectedRole
	c.mu.Unlock()
	if localUser == "" {
		return errf("channel_list not populated: register first")
	}

	subject := wire.SubjectAllFreq
	p := &wire.Params{
		MethodType:  wire.MethodTypeRequest,
		MessageType: wire.MessageINFO,
		CSeq:        c.nextCSeq(),
		LocalUser:   localUser,
		LocalIP:     c.localIP,
		LocalPort:   c.localPort,
		ServerUser:  c.user,
		ServerIP:    c.serverIP,
		ServerPort:  c.serverPort,
		MaxForwards: 70,
		Subject:     &subject,
	}
	if roleID != "" {
		p.RoleID = strPtr(roleID)
	}
	return c.sendRequest(p)
}

// SelectRadio selects code for transmit or receive. The first selection
// sends an INVITE with an SDP offer; subsequent selections pre-empt every
// currently-held radio whose frequency differs from code's (generalizing
// the original's "only look at the first held radio" check), then add
// code with a bare REFER.
func (c *Client) SelectRadio(code string) error {
	c.mu.Lock()
	localUser := c.channelList[2]
	held := len(c.sendRadio) + len(c.recvRadio)
	c.mu.Unlock()
	if localUser == "" {
		return errf("channel_list not populated: register first")
	}

	if held == 0 {
		sdpBody, err := media.BuildSDP(c.localIP, c.localRTPPort)
		if err != nil {
			return err
		}
		subject := wire.SubjectRadioAction
		expires := 5
		p := &wire.Params{
			MethodType:  wire.MethodTypeRequest,
			MessageType: wire.MessageINVITE,
			CSeq:        c.nextCSeq(),
			LocalUser:   localUser,
			LocalIP:     c.localIP,
			LocalPort:   c.localPort,
			ServerUser:  code,
			ServerIP:    c.serverIP,
			ServerPort:  c.serverPort,
			MaxForwards: 70,
			Subject:     &subject,
			Expires:     &expires,
			Contact:     strPtr(""),
			Allow:       c.allow,
			Supported:   c.supported,
			ContentType: wire.ContentTypeSDP,
			Content:     sdpBody,
		}
		return c.sendRequest(p)
	}

	if mismatched := c.needsSwitch(code); len(mismatched) > 0 {
		logger.Info("[RADIO] switching frequency, pre-empting held radios", "target", code, "mismatched", mismatched)
		c.mu.Lock()
		c.switching = true
		c.mu.Unlock()
		for _, held := range mismatched {
			if err := c.Bye(held); err != nil {
				c.mu.Lock()
				c.switching = false
				c.mu.Unlock()
				return err
			}
		}
		c.mu.Lock()
		c.switching = false
		c.mu.Unlock()
	}

	subject := wire.SubjectRadioAction
	expires := 5
	p := &wire.Params{
		MethodType:  wire.MethodTypeRequest,
		MessageType: wire.MessageREFER,
		CSeq:        c.nextCSeq(),
		LocalUser:   localUser,
		LocalIP:     c.localIP,
		LocalPort:   c.localPort,
		ServerUser:  code,
		ServerIP:    c.serverIP,
		ServerPort:  c.serverPort,
		MaxForwards: 70,
		Subject:     &subject,
		Expires:     &expires,
		ReferTo:     strPtr(""),
		ReferedBy:   strPtr(""),
	}
	return c.sendRequest(p)
}

// Bye releases code from whichever selection set holds it. A REFER with
// method=BYE is used while mid-switch or when more than one radio is
// held; otherwise a plain BYE is sent.
func (c *Client) Bye(code string) error {
	c.mu.Lock()
	localUser := c.channelList[2]
	useRefer := c.switching || len(c.sendRadio)+len(c.recvRadio) > 1
	c.mu.Unlock()
	if localUser == "" {
		return errf("channel_list not populated: register first")
	}

	subject := wire.SubjectRadioAction
	expires := 5

	if useRefer {
		method := wire.MessageBYE
		p := &wire.Params{
			MethodType:  wire.MethodTypeRequest,
			MessageType: wire.MessageREFER,
			CSeq:        c.nextCSeq(),
			LocalUser:   localUser,
			LocalIP:     c.localIP,
			LocalPort:   c.localPort,
			ServerUser:  code,
			ServerIP:    c.serverIP,
			ServerPort:  c.serverPort,
			MaxForwards: 70,
			Subject:     &subject,
			Expires:     &expires,
			ReferTo:     strPtr(""),
			ReferedBy:   strPtr(""),
			Method:      &method,
		}
		return c.sendRequest(p)
	}

	p := &wire.Params{
		MethodType:  wire.MethodTypeRequest,
		MessageType: wire.MessageBYE,
		CSeq:        c.nextCSeq(),
		LocalUser:   localUser,
		LocalIP:     c.localIP,
		LocalPort:   c.localPort,
		ServerUser:  code,
		ServerIP:    c.serverIP,
		ServerPort:  c.serverPort,
		MaxForwards: 70,
		Subject:     &subject,
		Expires:     &expires,
	}
	return c.sendRequest(p)
}

// Ack synthesizes an ACK echoing recv's CSeq, tag, and to_tag. Per the
// redesign note, this echoes the INVITE's CSeq number (with method ACK)
// rather than allocating a new one - it is fire-and-forget and never occupies the
// transaction slot.
func (c *Client) Ack(sent, recv *wire.Params) error {
	c.mu.Lock()
	localUser := c.channelList[2]
	c.mu.Unlock()

	subject := wire.SubjectRadioAction
	p := &wire.Params{
		MethodType:  wire.MethodTypeRequest,
		MessageType: wire.MessageACK,
		CSeq:        recv.CSeq,
		LocalUser:   localUser,
		LocalIP:     c.localIP,
		LocalPort:   c.localPort,
		ServerUser:  sent.ServerUser,
		ServerIP:    c.serverIP,
		ServerPort:  c.serverPort,
		Tag:         recv.Tag,
		ToTag:       recv.ToTag,
		MaxForwards: 70,
		Subject:     &subject,
		Allow:       c.allow,
		Supported:   c.supported,
	}
	return c.sendACK(p)
}

// KeyUp is a push-to-talk hook, referenced but never implemented in the
// original, and left as a placeholder here too: this dialect carries
// voice activity on the RTP marker bit rather than a signaled PTT event.
func (c *Client) KeyUp() {}

// dispatchResponse routes a correlated 200 response to the handler for
// sent's subject, and reports whether the transaction slot should clear.
func (c *Client) dispatchResponse(sent, recv *wire.Params) (bool, error) {
	if sent.Subject == nil {
		return false, errf("pending transaction has no subject")
	}
	subject := *sent.Subject

	switch subject {
	case wire.SubjectLogin, wire.SubjectLogout:
		c.mu.Lock()
		if subject == wire.SubjectLogin {
			c.status = "online"
		} else {
			c.status = "offline"
		}
		c.mu.Unlock()
		return true, nil

	case wire.SubjectRegister:
		if recv.ContentType != wire.ContentTypeRoleInfo {
			return false, errf("vcu_register response carried unexpected content-type %q", recv.ContentType)
		}
		info, err := wire.DecodeRoleInfo(recv.Content)
		if err != nil {
			return false, err
		}
		c.mu.Lock()
		c.channelList = info.ChannelNum
		c.selectedRole = info.SelectedRole()
		c.status = "online"
		c.mu.Unlock()
		return true, nil

	case wire.SubjectPhone, wire.SubjectFrequency, wire.SubjectRadio, wire.SubjectFunction, wire.SubjectAllFreq:
		return c.handleCatalogFragment(subject, recv)

	case wire.SubjectRadioAction:
		return c.handleRadioResponse(sent, recv)

	default:
		return false, errf("unhandled subject %q in response", subject)
	}
}

// handleRadioResponse implements the C5 state table: interpret the sent
// method (and, for REFER, the nested method) to decide whether code joins
// send_radio/recv_radio or leaves it, and whether the RTP endpoint should
// start or stop.
func (c *Client) handleRadioResponse(sent, recv *wire.Params) (bool, error) {
	code := sent.ServerUser

	switch sent.MessageType {
	case wire.MessageINVITE:
		port, err := media.ParseAudioPort(recv.Content)
		if err != nil {
			return false, err
		}
		c.mu.Lock()
		c.remoteRTPPort = port
		c.mu.Unlock()

		c.endpoint.SetRemote(c.serverIP, port)
		if err := c.endpoint.Start(); err != nil {
			return false, err
		}

		c.mu.Lock()
		ok := c.addHeldRadio(code)
		c.mu.Unlock()
		if !ok {
			logger.Warn("[RADIO] INVITE 200 for unknown radio code", "code", code)
		}
		if err := c.Ack(sent, recv); err != nil {
			logger.Warn("[RADIO] ACK send failed", "code", code, "error", err)
		}
		return true, nil

	case wire.MessageREFER:
		if sent.Method != nil && *sent.Method == wire.MessageBYE {
			c.mu.Lock()
			stop := c.removeHeldRadio(code)
			c.mu.Unlock()
			if stop {
				if err := c.endpoint.Stop(); err != nil {
					return false, err
				}
			}
			return true, nil
		}
		c.mu.Lock()
		ok := c.addHeldRadio(code)
		c.mu.Unlock()
		if !ok {
			logger.Warn("[RADIO] REFER 200 for unknown radio code", "code", code)
		}
		return true, nil

	case wire.MessageBYE:
		c.mu.Lock()
		stop := c.removeHeldRadio(code)
		c.mu.Unlock()
		if stop {
			if err := c.endpoint.Stop(); err != nil {
				return false, err
			}
		}
		return true, nil

	default:
		return false, errf("unexpected sent message type %q for radio subject", sent.MessageType)
	}
}
