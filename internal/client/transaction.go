package client

import (
	"time"

	"github.com/sebas/vcuswitch/internal/logger"
	"github.com/sebas/vcuswitch/internal/wire"
)

// PendingTransaction is the single outstanding request the client has in
// flight. At most one exists at any time; retransmission and response
// correlation both operate on it.
type PendingTransaction struct {
	Params      *wire.Params
	WireBytes   []byte
	FirstSentAt time.Time
	LastSentAt  time.Time
	RetriesUsed int
}

// waitSlotEmpty blocks the calling (action) goroutine until no transaction
// is outstanding, replacing the original's busy-spin on a non-empty queue
// with a condition variable.
func (c *Client) waitSlotEmpty() {
	c.mu.Lock()
	for c.pending != nil {
		c.cond.Wait()
	}
	c.mu.Unlock()
}

// nextCSeq allocates the next strictly monotonic CSeq value.
func (c *Client) nextCSeq() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cseq++
	return c.cseq
}

// sendRequest waits for the slot to be empty, encodes p, occupies the slot,
// and sends the bytes. p.CSeq must already be set by the caller.
func (c *Client) sendRequest(p *wire.Params) error {
	c.waitSlotEmpty()

	p.FillDefaults(c.gen)
	msg, err := p.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.pending = &PendingTransaction{
		Params:      p,
		WireBytes:   []byte(msg),
		FirstSentAt: time.Now(),
		LastSentAt:  time.Now(),
	}
	c.lastErr = nil
	c.mu.Unlock()

	_, err = c.conn.WriteToUDP([]byte(msg), c.remoteAddr())
	if err != nil {
		logger.Warn("[TXN] send failed", "cseq", p.CSeq, "error", err)
	}
	return err
}

// sendACK is fire-and-forget: it never touches the pending slot.
func (c *Client) sendACK(p *wire.Params) error {
	p.FillDefaults(c.gen)
	msg, err := p.Encode()
	if err != nil {
		return err
	}
	_, err = c.conn.WriteToUDP([]byte(msg), c.remoteAddr())
	return err
}

// checkTimeout resends the pending transaction's bytes if retry_timeout has
// elapsed since the last send, up to max_retries attempts. Called from the
// receive loop, not a dedicated timer goroutine; like every other access
// to the slot, it holds c.mu.
func (c *Client) checkTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return
	}
	if time.Since(c.pending.LastSentAt) < c.retryTimeout {
		return
	}
	if c.pending.RetriesUsed >= c.maxRetries {
		logger.Warn("[TXN] abandoning after max retries", "cseq", c.pending.Params.CSeq, "retries", c.pending.RetriesUsed)
		c.lastErr = errf("transaction cseq %d abandoned after %d retries with no response", c.pending.Params.CSeq, c.pending.RetriesUsed)
		c.clearSlotLocked()
		return
	}

	c.pending.RetriesUsed++
	c.pending.LastSentAt = time.Now()
	if _, err := c.conn.WriteToUDP(c.pending.WireBytes, c.remoteAddr()); err != nil {
		logger.Warn("[TXN] retransmit failed", "cseq", c.pending.Params.CSeq, "error", err)
		return
	}
	logger.Debug("[TXN] retransmitted", "cseq", c.pending.Params.CSeq, "attempt", c.pending.RetriesUsed)
}

// clearSlotLocked releases the pending transaction and wakes any action goroutine
// blocked in waitSlotEmpty. Caller must already hold c.mu.
func (c *Client) clearSlotLocked() {
	c.pending = nil
	c.cond.Broadcast()
}
