package media

import (
	"math"
	"sync"

	"github.com/zaf/g711"
)

// VoiceThreshold is the RMS level above which a captured frame sets the
// RTP marker bit, mirroring the original endpoint's voice-activity gate.
const VoiceThreshold = 100

// RMS computes the root-mean-square level of a 16-bit little-endian PCM
// frame, used for voice-activity detection.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sumSquares float64
	for i := 0; i < n; i++ {
		sample := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		v := float64(sample)
		sumSquares += v * v
	}
	return math.Sqrt(sumSquares / float64(n))
}

// HasVoiceActivity reports whether pcm's RMS level exceeds VoiceThreshold.
func HasVoiceActivity(pcm []byte) bool {
	return RMS(pcm) > VoiceThreshold
}

// EncodeALaw converts 16-bit PCM to G.711 A-law.
func EncodeALaw(pcm []byte) []byte {
	return g711.EncodeAlaw(pcm)
}

// DecodeALaw converts G.711 A-law back to 16-bit PCM.
func DecodeALaw(alaw []byte) []byte {
	return g711.DecodeAlaw(alaw)
}

// SilenceSource is an AudioSource that always returns a silent frame.
// It lets the endpoint run without an attached audio device, e.g. on a
// headless dispatcher console or under test.
type SilenceSource struct {
	frameBytes int
}

// NewSilenceSource returns a source that produces frameBytes of silence
// per call.
func NewSilenceSource(frameBytes int) *SilenceSource {
	return &SilenceSource{frameBytes: frameBytes}
}

func (s *SilenceSource) ReadFrame(buf []byte) (int, error) {
	n := s.frameBytes
	if n > len(buf) {
		n = len(buf)
	}
	for i := 0; i < n; i++ {
		buf[i] = 0
	}
	return n, nil
}

// DiscardSink is an AudioSink that drops every frame it receives.
type DiscardSink struct{}

func (DiscardSink) WriteFrame(frame []byte) error { return nil }

// RingSource/RingSink let tests and the CLI feed or capture frames
// through a channel instead of a real audio device.

// RingSource reads frames pushed onto an internal channel, falling back
// to silence when the channel is empty so the send loop never blocks.
type RingSource struct {
	mu         sync.Mutex
	frames     chan []byte
	frameBytes int
}

// NewRingSource returns a RingSource with the given buffered capacity.
func NewRingSource(frameBytes, capacity int) *RingSource {
	return &RingSource{frames: make(chan []byte, capacity), frameBytes: frameBytes}
}

// Push enqueues a frame of frameBytes length for the next ReadFrame call.
func (r *RingSource) Push(frame []byte) {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	select {
	case r.frames <- cp:
	default:
	}
}

func (r *RingSource) ReadFrame(buf []byte) (int, error) {
	select {
	case f := <-r.frames:
		n := copy(buf, f)
		return n, nil
	default:
		n := r.frameBytes
		if n > len(buf) {
			n = len(buf)
		}
		for i := 0; i < n; i++ {
			buf[i] = 0
		}
		return n, nil
	}
}

// RingSink collects frames into an internal channel for inspection.
type RingSink struct {
	frames chan []byte
}

// NewRingSink returns a RingSink buffering up to capacity frames.
func NewRingSink(capacity int) *RingSink {
	return &RingSink{frames: make(chan []byte, capacity)}
}

func (r *RingSink) WriteFrame(frame []byte) error {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	select {
	case r.frames <- cp:
	default:
	}
	return nil
}

// Frames exposes the underlying channel for test assertions.
func (r *RingSink) Frames() <-chan []byte { return r.frames }
