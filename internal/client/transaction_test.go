package client

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sebas/vcuswitch/internal/wire"
)

func newLoopbackClient(t *testing.T) *Client {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	c := &Client{
		conn:         conn,
		serverIP:     "127.0.0.1",
		serverPort:   conn.LocalAddr().(*net.UDPAddr).Port,
		gen:          wire.NewIDGenerator(1),
		retryTimeout: 10 * time.Millisecond,
		maxRetries:   3,
		radioDict:    make(map[string]Radio),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func TestNextCSeqIsMonotonic(t *testing.T) {
	c := &Client{}
	c.cond = sync.NewCond(&c.mu)
	if got := c.nextCSeq(); got != 1 {
		t.Errorf("first nextCSeq = %d, want 1", got)
	}
	if got := c.nextCSeq(); got != 2 {
		t.Errorf("second nextCSeq = %d, want 2", got)
	}
}

func TestWaitSlotEmptyUnblocksOnClear(t *testing.T) {
	c := &Client{}
	c.cond = sync.NewCond(&c.mu)
	c.pending = &PendingTransaction{Params: &wire.Params{}}

	done := make(chan struct{})
	go func() {
		c.waitSlotEmpty()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("waitSlotEmpty returned before slot was cleared")
	case <-time.After(20 * time.Millisecond):
	}

	c.mu.Lock()
	c.clearSlotLocked()
	c.mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waitSlotEmpty did not unblock after clearSlotLocked")
	}
}

func TestCheckTimeoutRetransmitsUpToMaxRetries(t *testing.T) {
	c := newLoopbackClient(t)

	p := &wire.Params{CSeq: 1}
	c.pending = &PendingTransaction{
		Params:      p,
		WireBytes:   []byte("ping"),
		FirstSentAt: time.Now(),
		LastSentAt:  time.Now().Add(-time.Hour),
	}

	for i := 1; i <= c.maxRetries; i++ {
		c.checkTimeout()
		if c.pending == nil {
			t.Fatalf("pending cleared early after check %d", i)
		}
		if c.pending.RetriesUsed != i {
			t.Fatalf("after check %d, RetriesUsed = %d, want %d", i, c.pending.RetriesUsed, i)
		}
		c.pending.LastSentAt = time.Now().Add(-time.Hour)
	}

	// One more past maxRetries must abandon the transaction: the slot is
	// cleared (so the next sendRequest doesn't block forever) and the
	// failure is recorded for the caller to observe.
	c.checkTimeout()
	if c.pending != nil {
		t.Errorf("pending = %+v, want nil after retries exhausted", c.pending)
	}
	if c.lastErr == nil {
		t.Error("lastErr is nil, want an abandonment error after retries exhausted")
	}
}

func TestCheckTimeoutAbandonmentUnblocksWaiters(t *testing.T) {
	c := newLoopbackClient(t)
	c.pending = &PendingTransaction{
		Params:      &wire.Params{CSeq: 1},
		WireBytes:   []byte("ping"),
		FirstSentAt: time.Now(),
		LastSentAt:  time.Now().Add(-time.Hour),
		RetriesUsed: c.maxRetries,
	}

	done := make(chan struct{})
	go func() {
		c.waitSlotEmpty()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("waitSlotEmpty returned before the transaction was abandoned")
	case <-time.After(20 * time.Millisecond):
	}

	c.checkTimeout()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waitSlotEmpty did not unblock after retries were exhausted")
	}

	if got := c.LastError(); got == nil {
		t.Error("LastError() = nil, want the abandonment error to be observable after WaitIdle returns")
	}
}

func TestCheckTimeoutNoopBeforeDeadline(t *testing.T) {
	c := newLoopbackClient(t)
	c.pending = &PendingTransaction{
		Params:      &wire.Params{CSeq: 1},
		WireBytes:   []byte("ping"),
		FirstSentAt: time.Now(),
		LastSentAt:  time.Now(),
	}
	c.retryTimeout = time.Hour

	c.checkTimeout()
	if c.pending.RetriesUsed != 0 {
		t.Errorf("RetriesUsed = %d, want 0 before deadline", c.pending.RetriesUsed)
	}
}
