package client

import "github.com/sebas/vcuswitch/internal/wire"

// handleCatalogFragment decodes one INFO response fragment belonging to a
// multi-fragment catalog subject, folds it into the in-progress
// accumulation, and reports whether this was the terminal fragment per the
// X-Fragment-Total/X-Fragment-Index extension (see SPEC_FULL.md's
// resolution of the source's undefined check_final_message predicate). A
// response missing those headers is treated as a complete single-fragment
// reply, so legacy single-message subjects keep working.
func (c *Client) handleCatalogFragment(subject string, recv *wire.Params) (final bool, err error) {
	switch subject {
	case wire.SubjectPhone:
		if recv.ContentType != wire.ContentTypePhoneBt {
			return false, errf("vcu_phone response carried unexpected content-type %q", recv.ContentType)
		}
		entries, err := wire.DecodeTelBtnInfo(recv.Content)
		if err != nil {
			return false, err
		}
		c.mu.Lock()
		c.phoneButtons = append(c.phoneButtons, entries...)
		c.mu.Unlock()

	case wire.SubjectFrequency, wire.SubjectAllFreq:
		if recv.ContentType != wire.ContentTypeFreqBt {
			return false, errf("%s response carried unexpected content-type %q", subject, recv.ContentType)
		}
		entries, err := wire.DecodeFreqBtnInfo(recv.Content)
		if err != nil {
			return false, err
		}
		c.mu.Lock()
		for _, e := range entries {
			c.frequencyList = append(c.frequencyList, e.Freq)
		}
		c.mu.Unlock()

	case wire.SubjectRadio:
		if recv.ContentType != wire.ContentTypeRadioBt {
			return false, errf("vcu_radio response carried unexpected content-type %q", recv.ContentType)
		}
		entries, err := wire.DecodeRadioInfo(recv.Content)
		if err != nil {
			return false, err
		}
		c.mu.Lock()
		for _, e := range entries {
			c.radioDict[e.Code] = Radio{Freq: e.Freq, Type: int(e.RSType), Avail: int(e.IsCan)}
		}
		c.mu.Unlock()

	case wire.SubjectFunction:
		if recv.ContentType != wire.ContentTypeFuncBt {
			return false, errf("vcu_function response carried unexpected content-type %q", recv.ContentType)
		}
		entries, err := wire.DecodeFunBtnInfo(recv.Content)
		if err != nil {
			return false, err
		}
		c.mu.Lock()
		c.functionButtons = append(c.functionButtons, entries...)
		c.mu.Unlock()

	default:
		return false, errf("subject %q is not a catalog subject", subject)
	}

	if recv.FragmentTotal == nil || recv.FragmentIndex == nil {
		return true, nil
	}
	return *recv.FragmentIndex == *recv.FragmentTotal-1, nil
}

// resetCatalogAccumulation clears the transient per-request fragment
// buffers before issuing a new catalog request, so a stale partial result
// from an abandoned transaction can never leak into a fresh one.
func (c *Client) resetCatalogAccumulation(subject string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch subject {
	case wire.SubjectPhone:
		c.phoneButtons = nil
	case wire.SubjectFrequency, wire.SubjectAllFreq:
		c.frequencyList = nil
	case wire.SubjectRadio:
		c.radioDict = make(map[string]Radio)
	case wire.SubjectFunction:
		c.functionButtons = nil
	}
}
