package server

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sebas/vcuswitch/internal/logger"
	"github.com/sebas/vcuswitch/internal/media"
	"github.com/sebas/vcuswitch/internal/wire"
)

// Config carries the server's addressing and fixture source.
type Config struct {
	LocalIP   string
	LocalPort int

	LocalRTPPort int

	FixturesPath string
}

// Server is the canned-reply dispatch peer: it answers every request
// from its one known client with fixture data, and drives a single RTP
// endpoint across radio selection/release.
type Server struct {
	localIP   string
	localPort int

	localRTPPort int
	endpoint     *media.Endpoint

	allow     []string
	supported []string

	fixtures *Fixtures
	gen      *wire.IDGenerator

	conn     *net.UDPConn
	peerAddr *net.UDPAddr

	mu sync.Mutex

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New loads cfg's fixtures and builds a Server bound to its RTP source
// and sink. It does not open the socket - call Start for that.
func New(cfg Config, source media.AudioSource, sink media.AudioSink) (*Server, error) {
	fixtures, err := LoadFixtures(cfg.FixturesPath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		localIP:      cfg.LocalIP,
		localPort:    cfg.LocalPort,
		localRTPPort: cfg.LocalRTPPort,
		allow:        []string{"MESSAGE", "REFER", "INFO", "NOTIFY", "SUBSCRIBE", "CANCEL", "BYE", "OPTIONS", "ACK", "INVITE"},
		supported:    []string{"100rel", "replaces"},
		fixtures:     fixtures,
		gen:          wire.NewIDGenerator(time.Now().UnixNano()),
		stopCh:       make(chan struct{}),
	}
	s.endpoint = media.NewEndpoint(cfg.LocalIP, cfg.LocalRTPPort, source, sink)
	return s, nil
}

// Start opens the server's UDP socket and launches the receive loop.
func (s *Server) Start() error {
	addr := &net.UDPAddr{IP: net.ParseIP(s.localIP), Port: s.localPort}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.conn = conn

	s.wg.Add(1)
	go s.receiveLoop()

	logger.Info("[SERVER] started", "local", addr.String())
	return nil
}

// Stop halts the receive loop, closes the socket, and stops the RTP
// endpoint if it is running.
func (s *Server) Stop() error {
	close(s.stopCh)
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.wg.Wait()
	return s.endpoint.Stop()
}

func (s *Server) receiveLoop() {
	defer s.wg.Done()

	buf := make([]byte, 10240)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				logger.Warn("[SERVER] read failed", "error", err)
				continue
			}
		}

		message := string(buf[:n])
		s.mu.Lock()
		s.peerAddr = addr
		s.mu.Unlock()

		recv, err := wire.Parse(message)
		if err != nil {
			logger.Warn("[SERVER] dropping malformed message", "error", err)
			continue
		}
		s.dispatch(recv)
	}
}

func (s *Server) logWarn(msg string, args ...any) {
	logger.Warn("[SERVER] "+msg, args...)
}
