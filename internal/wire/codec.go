package wire

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// IDGenerator produces branch/tag/call-id tokens. It is per-endpoint
// state (no process-wide RNG) so that a client and a server each get an
// independent, seedable sequence.
type IDGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewIDGenerator builds a generator seeded with seed. Tests pass a fixed
// seed for reproducible branches/tags; the client and server seed from
// the current time in nanoseconds.
func NewIDGenerator(seed int64) *IDGenerator {
	return &IDGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *IDGenerator) tenDigits() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 1000000000 + g.rng.Int63n(9000000000)
	return strconv.FormatInt(n, 10)
}

// Branch generates a "z9hG4bK-<10 digits>" token.
func (g *IDGenerator) Branch() string { return "z9hG4bK-" + g.tenDigits() }

// Tag generates a 10-digit tag.
func (g *IDGenerator) Tag() string { return g.tenDigits() }

// CallID generates a "<10 digits>@<local ip>" call identifier.
func (g *IDGenerator) CallID(localIP string) string { return g.tenDigits() + "@" + localIP }

// FillDefaults populates Branch, CallID, and Tag when they are empty,
// using gen. It is the Go equivalent of the original generator's
// "None means generate one" fields.
func (p *Params) FillDefaults(gen *IDGenerator) {
	if p.Branch == "" {
		p.Branch = gen.Branch()
	}
	if p.CallID == "" {
		p.CallID = gen.CallID(p.LocalIP)
	}
	if p.Tag == "" {
		p.Tag = gen.Tag()
	}
}

// Encode renders p as a complete wire message. It assumes FillDefaults
// (or a prior Parse) already populated Branch/CallID/Tag.
func (p *Params) Encode() (string, error) {
	var headers []string

	if p.MethodType == MethodTypeRequest {
		if p.ServerUser == "" || p.ServerIP == "" {
			return "", errf("request message missing server_user/server_ip")
		}
		headers = append(headers, fmt.Sprintf("%s sip:%s@%s:%d SIP/2.0",
			strings.ToUpper(p.MessageType), p.ServerUser, p.ServerIP, p.ServerPort))
	} else {
		headers = append(headers, fmt.Sprintf("SIP/2.0 %d %s", p.StatusCode, p.ReasonPhrase))
	}

	headers = append(headers, fmt.Sprintf("Via: SIP/2.0/UDP %s:%d;branch=%s", p.LocalIP, p.LocalPort, p.Branch))
	headers = append(headers, "From: "+p.renderFromHeader())
	headers = append(headers, "To: "+p.renderToHeader())
	headers = append(headers, "Call-ID: "+p.CallID)
	headers = append(headers, fmt.Sprintf("CSeq: %d %s", p.CSeq, strings.ToUpper(p.MessageType)))
	headers = append(headers, fmt.Sprintf("Max-Forwards: %d", p.MaxForwards))

	if p.Subject != nil {
		headers = append(headers, "Subject: "+*p.Subject)
	}
	if p.Expires != nil {
		headers = append(headers, fmt.Sprintf("Expires: %d", *p.Expires))
	}
	if p.Contact != nil {
		headers = append(headers, fmt.Sprintf("Contact: <sip:%s@%s:%d>", p.LocalUser, p.LocalIP, p.LocalPort))
	}
	if len(p.Allow) > 0 {
		headers = append(headers, "Allow: "+strings.Join(p.Allow, ", "))
	}
	if len(p.Supported) > 0 {
		headers = append(headers, "Supported: "+strings.Join(p.Supported, ", "))
	}
	if p.ReferTo != nil {
		headers = append(headers, "Refer-To: "+p.renderReferToHeader())
	}
	if p.ReferedBy != nil {
		headers = append(headers, fmt.Sprintf("Refered-By: <sip:%s@%s>", p.LocalUser, p.LocalIP))
	}

	var body strings.Builder
	if p.Content != "" {
		body.WriteString("Content-Type: " + p.ContentType + "\r\n")
		body.WriteString(fmt.Sprintf("Content-Length: %d\r\n", len(p.Content)))
		if p.FragmentTotal != nil {
			body.WriteString(fmt.Sprintf("X-Fragment-Total: %d\r\n", *p.FragmentTotal))
		}
		if p.FragmentIndex != nil {
			body.WriteString(fmt.Sprintf("X-Fragment-Index: %d\r\n", *p.FragmentIndex))
		}
		body.WriteString("\r\n")
		body.WriteString(p.Content)
	} else {
		body.WriteString("Content-Length: 0\r\n\r\n")
	}

	return strings.Join(headers, "\r\n") + "\r\n" + body.String(), nil
}

func (p *Params) renderFromHeader() string {
	var b strings.Builder
	if p.Password != nil {
		fmt.Fprintf(&b, "<sip:%s:%s@%s>;tag=%s", p.LocalUser, *p.Password, p.ServerIP, p.Tag)
	} else {
		fmt.Fprintf(&b, "<sip:%s@%s>;tag=%s", p.LocalUser, p.ServerIP, p.Tag)
	}
	if p.CWP != nil {
		fmt.Fprintf(&b, ";cwp=%s", *p.CWP)
	}
	if p.RoleID != nil {
		fmt.Fprintf(&b, ";roleid=%s", *p.RoleID)
	}
	return b.String()
}

func (p *Params) renderToHeader() string {
	if p.MethodType == MethodTypeResponse || p.MessageType == MessageACK {
		return fmt.Sprintf("<sip:%s@%s>;tag=%s", p.ServerUser, p.ServerIP, p.Tag)
	}
	return fmt.Sprintf("<sip:%s@%s>", p.ServerUser, p.ServerIP)
}

func (p *Params) renderReferToHeader() string {
	if p.Method != nil {
		return fmt.Sprintf("<sip:%s@%s;method=%s>", p.ServerUser, p.ServerIP, *p.Method)
	}
	return fmt.Sprintf("<sip:%s@%s>", p.ServerUser, p.ServerIP)
}

var (
	requestURIRe = regexp.MustCompile(`^sip:(?P<user>[^@]+)@(?P<ip>[^:]+):?(?P<port>\d+)?`)
	fromURIRe    = regexp.MustCompile(`^<sip:(?P<user>[^@]+)@(?P<ip>[^:>]+):?(?P<port>\d+)?>`)
	toURIRe      = regexp.MustCompile(`^<sip:(?P<user>[^@]+)@(?P<ip>[^:>]+):?(?P<port>\d+)?>`)
)

// Parse decodes a complete wire message into a Params record. It never
// panics: malformed input yields an error so the caller can log and drop
// the datagram per the error-handling design.
func Parse(message string) (*Params, error) {
	lines := strings.Split(message, "\r\n")
	if len(lines) == 0 {
		return nil, errf("empty message")
	}

	p := &Params{MaxForwards: 70, StatusCode: 200, ReasonPhrase: "OK"}

	first := lines[0]
	if strings.HasPrefix(first, "SIP/2.0") {
		p.MethodType = MethodTypeResponse
		fields := strings.SplitN(first, " ", 3)
		if len(fields) < 2 {
			return nil, errf("malformed status line %q", first)
		}
		code, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, errf("malformed status code in %q: %w", first, err)
		}
		p.StatusCode = code
		if len(fields) == 3 {
			p.ReasonPhrase = fields[2]
		}
	} else {
		p.MethodType = MethodTypeRequest
		fields := strings.SplitN(first, " ", 3)
		if len(fields) < 2 {
			return nil, errf("malformed request line %q", first)
		}
		p.MessageType = fields[0]
		m := requestURIRe.FindStringSubmatch(fields[1])
		if m == nil {
			return nil, errf("malformed request URI %q", fields[1])
		}
		p.ServerUser = m[1]
		p.ServerIP = m[2]
		p.ServerPort = 5060
		if m[3] != "" {
			port, err := strconv.Atoi(m[3])
			if err != nil {
				return nil, errf("malformed request URI port in %q: %w", fields[1], err)
			}
			p.ServerPort = port
		}
	}

	var bodyStart = -1
	for i := 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			bodyStart = i + 1
			break
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])

		switch name {
		case "via":
			if err := parseVia(p, value); err != nil {
				return nil, err
			}
		case "from":
			if err := parseFrom(p, value); err != nil {
				return nil, err
			}
		case "to":
			if err := parseTo(p, value); err != nil {
				return nil, err
			}
		case "call-id":
			p.CallID = value
		case "cseq":
			if err := parseCSeq(p, value); err != nil {
				return nil, err
			}
		case "max-forwards":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, errf("malformed Max-Forwards %q: %w", value, err)
			}
			p.MaxForwards = n
		case "subject":
			p.Subject = strPtr(value)
		case "expires":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, errf("malformed Expires %q: %w", value, err)
			}
			p.Expires = intPtr(n)
		case "contact":
			p.Contact = strPtr(value)
		case "allow":
			p.Allow = splitCSV(value)
		case "supported":
			p.Supported = splitCSV(value)
		case "refer-to":
			p.ReferTo = strPtr(value)
			if strings.Contains(value, ";method=") {
				rest := strings.SplitN(value, ";method=", 2)[1]
				method := strings.SplitN(rest, ">", 2)[0]
				p.Method = strPtr(method)
			}
		case "refered-by":
			p.ReferedBy = strPtr(value)
		case "content-type":
			p.ContentType = value
		case "x-fragment-index":
			n, err := strconv.Atoi(value)
			if err == nil {
				p.FragmentIndex = intPtr(n)
			}
		case "x-fragment-total":
			n, err := strconv.Atoi(value)
			if err == nil {
				p.FragmentTotal = intPtr(n)
			}
		}
	}

	if bodyStart >= 0 && bodyStart <= len(lines) {
		p.Content = strings.Join(lines[bodyStart:], "\r\n")
	}

	return p, nil
}

func parseVia(p *Params, value string) error {
	parts := strings.Split(value, ";")
	transport := strings.TrimSpace(parts[0])
	fields := strings.Fields(transport)
	if len(fields) < 2 {
		return errf("malformed Via %q", value)
	}
	ipPort := fields[1]
	ip, port := ipPort, "5060"
	if strings.Contains(ipPort, ":") {
		host, portStr, ok := strings.Cut(ipPort, ":")
		if ok {
			ip, port = host, portStr
		}
	}
	p.LocalIP = ip
	n, err := strconv.Atoi(port)
	if err != nil {
		return errf("malformed Via port %q: %w", value, err)
	}
	p.LocalPort = n

	for _, part := range parts[1:] {
		if strings.Contains(part, "branch=") {
			p.Branch = strings.SplitN(part, "=", 2)[1]
		}
	}
	return nil
}

func parseFrom(p *Params, value string) error {
	parts := strings.Split(value, ";")
	m := fromURIRe.FindStringSubmatch(parts[0])
	if m == nil {
		return errf("malformed From %q", value)
	}
	localUser := m[1]
	// The generator embeds an optional password as "user:password" inside
	// the From URI's user part rather than as a ;param.
	if user, password, ok := strings.Cut(localUser, ":"); ok {
		p.LocalUser = user
		p.Password = strPtr(password)
	} else {
		p.LocalUser = localUser
	}

	for _, part := range parts[1:] {
		switch {
		case strings.Contains(part, "tag="):
			p.Tag = strings.SplitN(part, "=", 2)[1]
		case strings.Contains(part, "cwp="):
			p.CWP = strPtr(strings.SplitN(part, "=", 2)[1])
		case strings.Contains(part, "roleid="):
			p.RoleID = strPtr(strings.SplitN(part, "=", 2)[1])
		case strings.Contains(part, "password="):
			p.Password = strPtr(strings.SplitN(part, "=", 2)[1])
		}
	}
	return nil
}

func parseTo(p *Params, value string) error {
	parts := strings.Split(value, ";")
	m := toURIRe.FindStringSubmatch(parts[0])
	if m == nil {
		return errf("malformed To %q", value)
	}
	p.RemoteUser = m[1]
	p.RemoteIP = m[2]
	p.RemotePort = 5060
	if m[3] != "" {
		n, err := strconv.Atoi(m[3])
		if err != nil {
			return errf("malformed To port %q: %w", value, err)
		}
		p.RemotePort = n
	}
	for _, part := range parts[1:] {
		if strings.Contains(part, "tag=") {
			p.ToTag = strings.SplitN(part, "=", 2)[1]
		}
	}
	return nil
}

func parseCSeq(p *Params, value string) error {
	fields := strings.Fields(value)
	if len(fields) < 1 {
		return errf("malformed CSeq %q", value)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return errf("malformed CSeq number %q: %w", value, err)
	}
	p.CSeq = n
	p.HasCSeq = true
	if p.MethodType == MethodTypeResponse && len(fields) > 1 {
		p.MessageType = strings.ToUpper(fields[1])
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}
