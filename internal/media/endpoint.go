package media

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/rtp"

	"github.com/sebas/vcuswitch/internal/logger"
)

// rtpHeaderSize is the fixed RTP header length. receiveLoop drops any
// datagram shorter than this header plus one frame of A-law payload
// without attempting to parse it.
const rtpHeaderSize = 12

// Endpoint is one RTP media leg: a UDP socket paced at 20ms per frame,
// transcoding between 16-bit PCM and G.711 A-law, with a small jitter
// buffer smoothing playback. The client and the server each own one.
type Endpoint struct {
	codec Codec

	mu         sync.Mutex
	conn       *net.UDPConn
	remoteAddr *net.UDPAddr
	localAddr  *net.UDPAddr

	ssrc      uint32
	seq       uint16
	timestamp uint32

	source AudioSource
	sink   AudioSink

	jitter  *JitterBuffer
	seqTrk  *SequenceTracker
	session string

	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewEndpoint builds an Endpoint bound to localIP:localPort. source/sink
// may be nil, in which case silence capture and a discarding playback
// sink are used - the right default for a headless dispatcher process.
func NewEndpoint(localIP string, localPort int, source AudioSource, sink AudioSink) *Endpoint {
	codec := CodecPCMA
	if source == nil {
		source = NewSilenceSource(codec.SamplesPerFrame() * 2)
	}
	if sink == nil {
		sink = DiscardSink{}
	}
	return &Endpoint{
		codec:     codec,
		localAddr: &net.UDPAddr{IP: net.ParseIP(localIP), Port: localPort},
		ssrc:      GenerateSSRC(),
		seq:       GenerateSequenceStart(),
		timestamp: GenerateTimestampStart(),
		source:    source,
		sink:      sink,
		jitter:    NewJitterBuffer(int(codec.SampleRate) * 50 / 1000 / codec.SamplesPerFrame()),
		seqTrk:    NewSequenceTracker(),
		session:   uuid.New().String(),
	}
}

// SetRemote points the endpoint at a remote RTP address. Safe to call
// before or after Start; a running send loop picks up the new address
// on its next tick.
func (e *Endpoint) SetRemote(ip string, port int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remoteAddr = &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
}

// LocalPort returns the bound local RTP port.
func (e *Endpoint) LocalPort() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.localAddr.Port
}

// Start opens the UDP socket (if not already open) and launches the
// paced send and receive loops. Calling Start on a running endpoint is a
// no-op.
func (e *Endpoint) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}

	conn, err := net.ListenUDP("udp", e.localAddr)
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("media: listen %s: %w", e.localAddr, err)
	}
	if err := conn.SetReadBuffer(1 << 20); err != nil {
		logger.Warn("[RTP] failed to set receive buffer", "session", e.session, "error", err)
	}
	e.conn = conn
	e.localAddr = conn.LocalAddr().(*net.UDPAddr)
	e.running = true
	e.stopCh = make(chan struct{})
	e.mu.Unlock()

	e.wg.Add(2)
	go e.sendLoop()
	go e.receiveLoop()

	logger.Info("[RTP] endpoint started", "session", e.session, "local", e.localAddr.String())
	return nil
}

// Stop halts both loops, closes the socket, and clears the jitter
// buffer. Calling Stop on a stopped endpoint is a no-op.
func (e *Endpoint) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	close(e.stopCh)
	conn := e.conn
	e.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	e.wg.Wait()
	e.jitter.Reset()

	if closer, ok := e.source.(Closer); ok {
		_ = closer.Close()
	}
	if closer, ok := e.sink.(Closer); ok {
		_ = closer.Close()
	}

	logger.Info("[RTP] endpoint stopped", "session", e.session)
	return nil
}

func (e *Endpoint) sendLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.codec.SampleDur)
	defer ticker.Stop()

	pcm := make([]byte, e.codec.SamplesPerFrame()*2)

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.mu.Lock()
			conn := e.conn
			remote := e.remoteAddr
			e.mu.Unlock()
			if conn == nil || remote == nil {
				continue
			}

			n, err := e.source.ReadFrame(pcm)
			if err != nil {
				logger.Warn("[RTP] audio source read failed", "session", e.session, "error", err)
				continue
			}

			marker := HasVoiceActivity(pcm[:n])
			payload := EncodeALaw(pcm[:n])

			e.mu.Lock()
			pkt := &rtp.Packet{
				Header: rtp.Header{
					Version:        2,
					Marker:         marker,
					PayloadType:    e.codec.PayloadType,
					SequenceNumber: e.seq,
					Timestamp:      e.timestamp,
					SSRC:           e.ssrc,
				},
				Payload: payload,
			}
			e.seq++
			e.timestamp += e.codec.TimestampIncrement()
			e.mu.Unlock()

			data, err := pkt.Marshal()
			if err != nil {
				logger.Warn("[RTP] marshal failed", "session", e.session, "error", err)
				continue
			}
			if _, err := conn.WriteToUDP(data, remote); err != nil {
				logger.Warn("[RTP] send failed", "session", e.session, "error", err)
			}
		}
	}
}

func (e *Endpoint) receiveLoop() {
	defer e.wg.Done()

	buf := make([]byte, 2048)
	minLen := rtpHeaderSize + e.codec.SamplesPerFrame()

	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		e.mu.Lock()
		conn := e.conn
		e.mu.Unlock()
		if conn == nil {
			return
		}

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-e.stopCh:
				return
			default:
				logger.Warn("[RTP] read failed", "session", e.session, "error", err)
				continue
			}
		}
		if n < minLen {
			continue
		}

		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		if pkt.Version != 2 || pkt.PayloadType != e.codec.PayloadType {
			continue
		}

		_, lost := e.seqTrk.Update(pkt.SequenceNumber)
		if lost > 0 {
			logger.Debug("[RTP] packet loss detected", "session", e.session, "lost", lost)
		}

		pcm := DecodeALaw(pkt.Payload)
		e.jitter.Push(JitterFrame{PCM: pcm, Marker: pkt.Marker})

		if frame, ok := e.jitter.Pop(); ok {
			if err := e.sink.WriteFrame(frame.PCM); err != nil {
				logger.Warn("[RTP] audio sink write failed", "session", e.session, "error", err)
			}
		}
	}
}
