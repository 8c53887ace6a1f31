package client

// Radio is one entry of the radio catalog: a transmit/receive capable
// channel identified by its 12-byte code group.
type Radio struct {
	Freq  string
	Type  int // 0 = send, 1 = receive
	Avail int // 0 = unavailable, 1 = available
}

// needsSwitch reports whether selecting code would require pre-empting any
// radio already held in send or recv, because its frequency differs. This
// generalizes the original's check, which only ever inspected the first
// held send/recv radio: here every currently-held radio is compared.
func (c *Client) needsSwitch(code string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	target, ok := c.radioDict[code]
	if !ok {
		return nil
	}

	var mismatched []string
	for _, held := range c.sendRadio {
		if r, ok := c.radioDict[held]; ok && r.Freq != target.Freq {
			mismatched = append(mismatched, held)
		}
	}
	for _, held := range c.recvRadio {
		if r, ok := c.radioDict[held]; ok && r.Freq != target.Freq {
			mismatched = append(mismatched, held)
		}
	}
	return mismatched
}

func removeFromSet(set []string, code string) []string {
	out := set[:0]
	for _, s := range set {
		if s != code {
			out = append(out, s)
		}
	}
	return out
}

func containsString(set []string, code string) bool {
	for _, s := range set {
		if s == code {
			return true
		}
	}
	return false
}

// addHeldRadio files code into send_radio or recv_radio according to its
// catalog type, and returns false if code is not a known radio. Caller
// must already hold c.mu, unlike needsSwitch above.
func (c *Client) addHeldRadio(code string) bool {
	radio, ok := c.radioDict[code]
	if !ok {
		return false
	}
	if radio.Type == 0 {
		c.sendRadio = append(c.sendRadio, code)
	} else {
		c.recvRadio = append(c.recvRadio, code)
	}
	return true
}

// removeHeldRadio drops code from whichever set holds it and reports
// whether the radio endpoint should now stop (both sets empty). Caller
// must already hold c.mu.
func (c *Client) removeHeldRadio(code string) (shouldStopRTP bool) {
	if containsString(c.sendRadio, code) {
		c.sendRadio = removeFromSet(c.sendRadio, code)
	} else if containsString(c.recvRadio, code) {
		c.recvRadio = removeFromSet(c.recvRadio, code)
	}
	return len(c.sendRadio)+len(c.recvRadio) == 0
}
