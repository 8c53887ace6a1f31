// Package wire implements the VCU dispatch dialect: a SIP-shaped request/
// response grammar that is deliberately not RFC 3261 conformant (inline
// cwp=/roleid=/password= From-header parameters, custom Subject values,
// base64-framed binary bodies). Params is the single structured record
// that covers every header field the dialect uses; which optional fields
// are populated distinguishes a register/info/refer message from a plain
// one, mirroring the original's dataclass hierarchy without the
// inheritance.
package wire

import "fmt"

// MethodType distinguishes a request line from a status line.
type MethodType string

const (
	MethodTypeRequest  MethodType = "request"
	MethodTypeResponse MethodType = "response"
)

// Well-known message types (the dialect's "methods").
const (
	MessageREGISTER = "REGISTER"
	MessageINFO     = "INFO"
	MessageINVITE   = "INVITE"
	MessageACK      = "ACK"
	MessageBYE      = "BYE"
	MessageREFER    = "REFER"
)

// Well-known Subject header values: the catalog and heartbeat subjects
// ride on INFO, vcu_register on REGISTER, and radio on INVITE/REFER/BYE.
const (
	SubjectLogin       = "vcu_login"
	SubjectLogout      = "vcu_logout"
	SubjectRegister    = "vcu_register"
	SubjectPhone       = "vcu_phone"
	SubjectFrequency   = "vcu_frequency"
	SubjectRadio       = "vcu_radio"
	SubjectFunction    = "vcu_function"
	SubjectAllFreq     = "all_freq"
	SubjectRadioAction = "radio"
)

// Content-Type values that pair with the subjects above.
const (
	ContentTypeServerIP = "application/server_ip"
	ContentTypeRoleInfo = "application/role_info"
	ContentTypePhoneBt  = "application/phone_bt_info"
	ContentTypeFreqBt   = "application/frequency_bt_info"
	ContentTypeRadioBt  = "application/radio_bt_info"
	ContentTypeFuncBt   = "application/func_bt_info"
	ContentTypeSDP      = "application/sdp"
	// ContentTypeFrequency tags the '+'-joined frequency list a
	// get_radio_btn request sends as its own body, requesting radios at
	// those frequencies.
	ContentTypeFrequency = "application/frequency"
)

// Kind classifies a Params value by which optional extension fields are
// populated, the way the original's parser chose a dataclass subtype.
type Kind int

const (
	KindBase Kind = iota
	KindRegister
	KindInfo
	KindRefer
)

// Params is the single record covering every header field the dialect
// uses. Optional fields are nil/zero when absent from the wire message.
type Params struct {
	MethodType  MethodType
	MessageType string // REGISTER, INFO, INVITE, ACK, BYE, REFER (request); echoed method (response)
	Branch      string
	CallID      string
	CSeq        int
	HasCSeq     bool
	Tag         string
	ToTag       string

	LocalUser string
	LocalIP   string
	LocalPort int

	RemoteUser string
	RemoteIP   string
	RemotePort int

	ServerUser string
	ServerIP   string
	ServerPort int

	MaxForwards int

	Subject     *string
	Expires     *int
	Contact     *string // non-nil triggers Contact header generation from Local*
	Allow       []string
	Supported   []string
	ContentType string
	Content     string

	StatusCode   int
	ReasonPhrase string

	// Register extension.
	Password *string
	CWP      *string

	// Info extension.
	RoleID *string

	// Refer extension.
	ReferTo   *string // raw header value once parsed; rendered fresh on encode
	ReferedBy *string
	Method    *string // nested method, e.g. "BYE" on a REFER

	// Dialect fragment-termination extension (see SPEC_FULL.md Open
	// Question resolution): appended only on multi-fragment INFO
	// responses, after Content-Length.
	FragmentIndex *int
	FragmentTotal *int
}

// Kind reports which variant this record represents, by presence of its
// extension fields - the Go analogue of the original's subclass dispatch.
func (p *Params) Kind() Kind {
	if p.Password != nil || p.CWP != nil {
		return KindRegister
	}
	if p.RoleID != nil {
		return KindInfo
	}
	if p.ReferTo != nil || p.ReferedBy != nil {
		return KindRefer
	}
	return KindBase
}

// IsMultiFragmentSubject reports whether subject identifies one of the
// catalog operations the server answers with several INFO fragments.
func IsMultiFragmentSubject(subject string) bool {
	switch subject {
	case SubjectPhone, SubjectFrequency, SubjectRadio, SubjectFunction, SubjectAllFreq:
		return true
	default:
		return false
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func errf(format string, args ...any) error {
	return fmt.Errorf("wire: "+format, args...)
}
