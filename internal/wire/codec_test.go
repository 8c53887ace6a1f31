package wire

import "testing"

func TestEncodeParseRoundTripRegister(t *testing.T) {
	gen := NewIDGenerator(42)
	expires := 5
	password := "secret"
	cwp := "01"

	p := &Params{
		MethodType:  MethodTypeRequest,
		MessageType: MessageREGISTER,
		LocalUser:   "1001",
		LocalIP:     "192.168.1.100",
		LocalPort:   5070,
		ServerUser:  "1000",
		ServerIP:    "192.168.1.1",
		ServerPort:  5060,
		MaxForwards: 70,
		CSeq:        1,
		Expires:     &expires,
		Password:    &password,
		CWP:         &cwp,
		ContentType: "",
	}
	p.FillDefaults(gen)

	wire, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	parsed, err := Parse(wire)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if parsed.Kind() != KindRegister {
		t.Fatalf("expected KindRegister, got %v", parsed.Kind())
	}
	if parsed.LocalUser != "1001" {
		t.Errorf("LocalUser = %q, want 1001", parsed.LocalUser)
	}
	if parsed.Password == nil || *parsed.Password != "secret" {
		t.Errorf("Password = %v, want secret", parsed.Password)
	}
	if parsed.CWP == nil || *parsed.CWP != "01" {
		t.Errorf("CWP = %v, want 01", parsed.CWP)
	}
	if parsed.CallID != p.CallID {
		t.Errorf("CallID = %q, want %q", parsed.CallID, p.CallID)
	}
	if parsed.Branch != p.Branch {
		t.Errorf("Branch = %q, want %q", parsed.Branch, p.Branch)
	}
	if parsed.Expires == nil || *parsed.Expires != 5 {
		t.Errorf("Expires = %v, want 5", parsed.Expires)
	}
}

func TestEncodeParseRoundTripInfoWithBody(t *testing.T) {
	gen := NewIDGenerator(7)
	subject := SubjectFrequency
	idx, total := 0, 3

	p := &Params{
		MethodType:    MethodTypeResponse,
		MessageType:   MessageINFO,
		LocalUser:     "1000",
		LocalIP:       "192.168.1.1",
		LocalPort:     5060,
		ServerUser:    "1001",
		ServerIP:      "192.168.1.100",
		ServerPort:    5070,
		MaxForwards:   70,
		CSeq:          1025,
		Subject:       &subject,
		ContentType:   ContentTypeFreqBt,
		Content:       "hello-body",
		StatusCode:    200,
		ReasonPhrase:  "OK",
		FragmentIndex: &idx,
		FragmentTotal: &total,
	}
	p.FillDefaults(gen)

	raw, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	parsed, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if parsed.MethodType != MethodTypeResponse {
		t.Errorf("MethodType = %v, want response", parsed.MethodType)
	}
	if parsed.MessageType != "INFO" {
		t.Errorf("MessageType = %q, want INFO", parsed.MessageType)
	}
	if parsed.Content != "hello-body" {
		t.Errorf("Content = %q, want hello-body", parsed.Content)
	}
	if parsed.ContentType != ContentTypeFreqBt {
		t.Errorf("ContentType = %q, want %q", parsed.ContentType, ContentTypeFreqBt)
	}
	if parsed.FragmentIndex == nil || *parsed.FragmentIndex != 0 {
		t.Errorf("FragmentIndex = %v, want 0", parsed.FragmentIndex)
	}
	if parsed.FragmentTotal == nil || *parsed.FragmentTotal != 3 {
		t.Errorf("FragmentTotal = %v, want 3", parsed.FragmentTotal)
	}
	if parsed.CSeq != 1025 {
		t.Errorf("CSeq = %d, want 1025", parsed.CSeq)
	}
}

func TestParseRefersWithMethod(t *testing.T) {
	raw := "REFER sip:1000@192.168.1.1:5060 SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP 192.168.1.100:5070;branch=z9hG4bK-1234567890\r\n" +
		"From: <sip:1001@192.168.1.1>;tag=1111111111\r\n" +
		"To: <sip:1000@192.168.1.1>\r\n" +
		"Call-ID: 1234567890@192.168.1.100\r\n" +
		"CSeq: 2 REFER\r\n" +
		"Max-Forwards: 70\r\n" +
		"Subject: radio\r\n" +
		"Refer-To: <sip:1000@192.168.1.1;method=BYE>\r\n" +
		"Refered-By: <sip:1001@192.168.1.100>\r\n" +
		"Content-Length: 0\r\n\r\n"

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Kind() != KindRefer {
		t.Fatalf("expected KindRefer, got %v", p.Kind())
	}
	if p.Method == nil || *p.Method != "BYE" {
		t.Errorf("Method = %v, want BYE", p.Method)
	}
	if p.Subject == nil || *p.Subject != "radio" {
		t.Errorf("Subject = %v, want radio", p.Subject)
	}
}

func TestParseRejectsMalformedRequestLine(t *testing.T) {
	if _, err := Parse("GARBAGE\r\n\r\n"); err == nil {
		t.Fatal("expected error for malformed request line")
	}
}

func TestParseResponseStatusLine(t *testing.T) {
	raw := "SIP/2.0 100 Trying\r\n" +
		"Via: SIP/2.0/UDP 192.168.1.1:5060;branch=z9hG4bK-1\r\n" +
		"From: <sip:1000@192.168.1.1>;tag=1\r\n" +
		"To: <sip:1001@192.168.1.100>;tag=2\r\n" +
		"Call-ID: abc@192.168.1.1\r\n" +
		"CSeq: 5 INVITE\r\n" +
		"Max-Forwards: 70\r\n" +
		"Content-Length: 0\r\n\r\n"

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.StatusCode != 100 {
		t.Errorf("StatusCode = %d, want 100", p.StatusCode)
	}
	if p.MessageType != "INVITE" {
		t.Errorf("MessageType = %q, want INVITE", p.MessageType)
	}
	if p.CSeq != 5 {
		t.Errorf("CSeq = %d, want 5", p.CSeq)
	}
}
