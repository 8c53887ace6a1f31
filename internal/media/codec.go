package media

import "time"

// Codec is an immutable audio codec specification.
type Codec struct {
	Name        string
	PayloadType uint8
	SampleRate  uint32
	SampleDur   time.Duration
	Channels    int
}

// CodecPCMA is G.711 A-law at 8kHz/20ms - the only codec this dialect's
// default SDP offers (rtpmap:8 PCMA/8000).
var CodecPCMA = Codec{"PCMA", 8, 8000, 20 * time.Millisecond, 1}

// SamplesPerFrame returns the number of samples in one frame (160 for
// PCMA at 8kHz/20ms).
func (c Codec) SamplesPerFrame() int {
	return int(c.SampleRate) * int(c.SampleDur) / int(time.Second)
}

// BytesPerFrame returns the RTP payload size in bytes for one frame.
// G.711 packs one byte per sample.
func (c Codec) BytesPerFrame() int {
	return c.SamplesPerFrame() * c.Channels
}

// TimestampIncrement returns the RTP timestamp step per frame.
func (c Codec) TimestampIncrement() uint32 {
	return uint32(c.SamplesPerFrame())
}
