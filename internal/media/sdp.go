package media

import (
	"fmt"

	"github.com/pion/sdp/v3"
)

// Default offer/answer SDP fields, kept literal from the original's
// template rather than made configurable: this dialect always negotiates
// a single PCMA/8000 audio stream between two known hosts.
const (
	sdpUsername       = "SELUS"
	sdpSessionID      = 2890844527
	sdpSessionVersion = 1
	sdpSessionName    = "Sip Call"
)

// BuildSDP renders the offer/answer body both sides use: a single
// sendrecv audio stream carrying PCMA at 8kHz on port, sourced from ip.
// INVITE offers and 200 OK answers use the identical shape in this
// dialect - only the IP and port differ.
func BuildSDP(ip string, port int) (string, error) {
	desc := &sdp.SessionDescription{
		Origin: sdp.Origin{
			Username:       sdpUsername,
			SessionID:      sdpSessionID,
			SessionVersion: sdpSessionVersion,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: ip,
		},
		SessionName: sdpSessionName,
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: ip},
		},
		TimeDescriptions: []sdp.TimeDescription{
			{Timing: sdp.Timing{StartTime: 0, StopTime: 0}},
		},
		MediaDescriptions: []*sdp.MediaDescription{
			{
				MediaName: sdp.MediaName{
					Media:   "audio",
					Port:    sdp.RangedPort{Value: port},
					Protos:  []string{"RTP", "AVP"},
					Formats: []string{"8"},
				},
				Attributes: []sdp.Attribute{
					{Key: "rtpmap", Value: "8 PCMA/8000"},
					{Key: "sendrecv"},
				},
			},
		},
	}

	body, err := desc.Marshal()
	if err != nil {
		return "", fmt.Errorf("media: marshal SDP: %w", err)
	}
	return string(body), nil
}

// ParseAudioPort extracts the port from the first "m=audio <port> ..."
// media description in an SDP body.
func ParseAudioPort(body string) (int, error) {
	desc := &sdp.SessionDescription{}
	if err := desc.Unmarshal([]byte(body)); err != nil {
		return 0, fmt.Errorf("media: parse SDP: %w", err)
	}
	if len(desc.MediaDescriptions) == 0 {
		return 0, fmt.Errorf("media: SDP has no media descriptions")
	}
	return desc.MediaDescriptions[0].MediaName.Port.Value, nil
}
