// Package client implements the dispatch-console side of the dialect: the
// single-in-flight transaction layer, multi-fragment catalog aggregation,
// the action/dialog layer, and the radio-selection state machine, wired to
// one RTP media endpoint.
package client

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sebas/vcuswitch/internal/logger"
	"github.com/sebas/vcuswitch/internal/media"
	"github.com/sebas/vcuswitch/internal/wire"
)

// Config carries the immutable per-instance addressing the original's
// constructor took as positional arguments.
type Config struct {
	User string

	LocalIP   string
	LocalPort int

	ServerIP   string
	ServerPort int

	LocalRTPPort  int
	RemoteRTPPort int
}

// Client is one registered console: SIP-dialect dialog state, the
// single-in-flight transaction slot, and the RTP endpoint it drives.
type Client struct {
	user string

	localIP   string
	localPort int

	serverIP   string
	serverPort int

	allow     []string
	supported []string

	conn *net.UDPConn
	gen  *wire.IDGenerator

	mu   sync.Mutex
	cond *sync.Cond

	cseq    int
	pending *PendingTransaction
	lastErr error

	retryTimeout time.Duration
	maxRetries   int

	status       string
	selectedRole string
	channelList  [4]string

	sendRadio []string
	recvRadio []string
	radioDict map[string]Radio

	frequencyList   []string
	phoneButtons    []wire.TelBtnInfo
	functionButtons []wire.FunBtnInfo

	switching bool

	localRTPPort  int
	remoteRTPPort int
	endpoint      *media.Endpoint

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Client bound to cfg's local SIP address. It does not open
// the socket or start the receive loop - call Start for that.
func New(cfg Config, source media.AudioSource, sink media.AudioSink) *Client {
	c := &Client{
		user:          cfg.User,
		localIP:       cfg.LocalIP,
		localPort:     cfg.LocalPort,
		serverIP:      cfg.ServerIP,
		serverPort:    cfg.ServerPort,
		allow:         []string{"MESSAGE", "REFER", "INFO", "NOTIFY", "SUBSCRIBE", "CANCEL", "BYE", "OPTIONS", "ACK", "INVITE"},
		supported:     []string{"100rel", "replaces"},
		gen:           wire.NewIDGenerator(time.Now().UnixNano()),
		retryTimeout:  5 * time.Second,
		maxRetries:    3,
		status:        "offline",
		radioDict:     make(map[string]Radio),
		localRTPPort:  cfg.LocalRTPPort,
		remoteRTPPort: cfg.RemoteRTPPort,
		stopCh:        make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	c.endpoint = media.NewEndpoint(cfg.LocalIP, cfg.LocalRTPPort, source, sink)
	return c
}

// Start opens the client's SIP-dialect UDP socket and launches the receive
// loop. The RTP endpoint is started separately, on radio selection.
func (c *Client) Start() error {
	addr := &net.UDPAddr{IP: net.ParseIP(c.localIP), Port: c.localPort}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("client: listen %s: %w", addr, err)
	}
	c.conn = conn

	c.wg.Add(1)
	go c.receiveLoop()

	logger.Info("[CLIENT] started", "user", c.user, "local", addr.String())
	return nil
}

// Stop halts the receive loop, closes the socket, and stops the RTP
// endpoint if it is running.
func (c *Client) Stop() error {
	close(c.stopCh)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.wg.Wait()
	return c.endpoint.Stop()
}

// Status reports the current login state.
func (c *Client) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SelectedRole reports the role derived from the register response.
func (c *Client) SelectedRole() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedRole
}

// ChannelList reports the four channel identifiers learned on register.
func (c *Client) ChannelList() [4]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelList
}

// FrequencyList reports the frequencies learned from the last complete
// get_frequency_btn catalog fetch.
func (c *Client) FrequencyList() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.frequencyList))
	copy(out, c.frequencyList)
	return out
}

// RadioDict reports the radio catalog learned from the last complete
// get_radio_btn fetch.
func (c *Client) RadioDict() map[string]Radio {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Radio, len(c.radioDict))
	for k, v := range c.radioDict {
		out[k] = v
	}
	return out
}

// PhoneButtons reports the phone button catalog from the last complete
// get_phone_btn fetch.
func (c *Client) PhoneButtons() []wire.TelBtnInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wire.TelBtnInfo, len(c.phoneButtons))
	copy(out, c.phoneButtons)
	return out
}

// FunctionButtons reports the function button catalog from the last
// complete get_function_btn fetch.
func (c *Client) FunctionButtons() []wire.FunBtnInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wire.FunBtnInfo, len(c.functionButtons))
	copy(out, c.functionButtons)
	return out
}

// WaitIdle blocks until no transaction is outstanding, letting a one-shot
// caller (e.g. the CLI) know an issued action's response - or its final
// retry - has been processed before reading back state and exiting.
func (c *Client) WaitIdle() {
	c.waitSlotEmpty()
}

// LastError reports the most recent transaction failure observed since
// the last request was issued - e.g. a transaction abandoned after
// exhausting its retries with no response. Nil if the last request
// completed normally.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// HeldRadios reports the current transmit and receive selection sets.
func (c *Client) HeldRadios() (send, recv []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	send = append([]string(nil), c.sendRadio...)
	recv = append([]string(nil), c.recvRadio...)
	return
}

func (c *Client) remoteAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(c.serverIP), Port: c.serverPort}
}

// receiveLoop is the client's single receive context: it reads datagrams,
// parses them, dispatches to the right handler, and checks the
// retransmission timer once per inbound datagram (matching the original's
// recvfrom-then-check-timeout ordering) and additionally on a 1s ticker so
// retries fire even during a lull in inbound traffic.
func (c *Client) receiveLoop() {
	defer c.wg.Done()

	type datagram struct {
		data []byte
		err  error
	}
	rx := make(chan datagram, 8)
	go func() {
		buf := make([]byte, 10240)
		for {
			n, _, err := c.conn.ReadFromUDP(buf)
			if err != nil {
				rx <- datagram{err: err}
				return
			}
			cp := make([]byte, n)
			copy(cp, buf[:n])
			rx <- datagram{data: cp}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.checkTimeout()
		case dg := <-rx:
			c.checkTimeout()
			if dg.err != nil {
				select {
				case <-c.stopCh:
					return
				default:
					logger.Warn("[CLIENT] read failed", "error", dg.err)
					continue
				}
			}
			c.handleMessage(string(dg.data))
		}
	}
}

func (c *Client) handleMessage(message string) {
	recv, err := wire.Parse(message)
	if err != nil {
		logger.Warn("[CLIENT] dropping malformed message", "error", err)
		return
	}

	if recv.StatusCode != 200 {
		logger.Info("[CLIENT] non-200 response", "status", recv.StatusCode, "reason", recv.ReasonPhrase)
		return
	}

	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()
	if pending == nil {
		logger.Debug("[CLIENT] 200 response with no pending transaction, dropping")
		return
	}
	if recv.CSeq != pending.Params.CSeq {
		logger.Debug("[CLIENT] 200 response cseq mismatch, dropping", "want", pending.Params.CSeq, "got", recv.CSeq)
		return
	}

	final, err := c.dispatchResponse(pending.Params, recv)
	if err != nil {
		logger.Warn("[CLIENT] response handling failed", "error", err)
		return
	}
	if final {
		c.mu.Lock()
		c.clearSlotLocked()
		c.mu.Unlock()
	}
}
