package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"strings"
)

// Fixed-size binary catalog records, little-endian (the original packs
// them with ctypes.Structure on an x86 host). Each Decode* function
// accepts the base64 text carried in an INFO body and returns every
// fixed-size entry packed back to back; Encode* is its inverse, used by
// the server's canned-reply fixtures and by tests.

const (
	freqBtnInfoSize = 76
	radioInfoSize   = 120
	telBtnInfoSize  = 88
	funBtnInfoSize  = 40

	roleChannelCount       = 4
	roleChannelLength      = 32
	roleRolesLength        = 480
	roleOtherChooseLength  = 128
	roleInfoSize           = roleChannelLength*roleChannelCount + roleRolesLength + roleOtherChooseLength
)

// FreqBtnInfo is one frequency-selector button entry (76 bytes).
type FreqBtnInfo struct {
	Position int32
	Name     string
	Freq     string
	Saving   int32
	CanUse   int32
}

// RadioInfo is one radio entry in the catalog (120 bytes).
type RadioInfo struct {
	Position  int32
	FreqName  string
	Freq      string
	Code      string
	RadioName string
	RSType    int32 // 0 = send, 1 = receive
	IsCan     int32
}

// TelBtnInfo is one telephone-selector button entry (88 bytes).
type TelBtnInfo struct {
	Position int32
	Name     string
	Tel      string
	Dial     int32
	CanUse   int32
	Type     int32
	Status   uint32
	DeptID   int32
}

// FunBtnInfo is one function button entry (40 bytes). The original's
// ctypes layout carries iType as a 4-byte int, not a padded string field.
type FunBtnInfo struct {
	Position int32
	Name     string
	Type     int32
}

// RoleInfo is the single role/channel catalog record returned on
// register: four fixed-width channel names, a '+'-delimited role list,
// and a '+'-delimited "other choosable roles" list.
type RoleInfo struct {
	ChannelNum        [roleChannelCount]string
	Roles             []string
	OtherChooseRoles  []string
}

// SelectedRole returns the active role, derived by splitting the first
// role entry on its first colon (e.g. "12:OP" -> "12").
func (r RoleInfo) SelectedRole() string {
	if len(r.Roles) == 0 {
		return ""
	}
	user, _, ok := strings.Cut(r.Roles[0], ":")
	if !ok {
		return r.Roles[0]
	}
	return user
}

func packCString(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

func readCString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// DecodeFreqBtnInfo parses a base64-encoded run of FreqBtnInfo entries.
func DecodeFreqBtnInfo(encoded string) ([]FreqBtnInfo, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, errf("base64 decode FreqBtnInfo: %w", err)
	}
	if len(data)%freqBtnInfoSize != 0 {
		return nil, errf("FreqBtnInfo payload length %d is not a multiple of %d", len(data), freqBtnInfoSize)
	}
	count := len(data) / freqBtnInfoSize
	out := make([]FreqBtnInfo, count)
	for i := 0; i < count; i++ {
		b := data[i*freqBtnInfoSize : (i+1)*freqBtnInfoSize]
		out[i] = FreqBtnInfo{
			Position: int32(binary.LittleEndian.Uint32(b[0:4])),
			Name:     readCString(b[4:36]),
			Freq:     readCString(b[36:68]),
			Saving:   int32(binary.LittleEndian.Uint32(b[68:72])),
			CanUse:   int32(binary.LittleEndian.Uint32(b[72:76])),
		}
	}
	return out, nil
}

// EncodeFreqBtnInfo packs entries and base64-encodes the result.
func EncodeFreqBtnInfo(entries []FreqBtnInfo) string {
	buf := make([]byte, 0, len(entries)*freqBtnInfoSize)
	for _, e := range entries {
		var b [freqBtnInfoSize]byte
		binary.LittleEndian.PutUint32(b[0:4], uint32(e.Position))
		copy(b[4:36], packCString(e.Name, 32))
		copy(b[36:68], packCString(e.Freq, 32))
		binary.LittleEndian.PutUint32(b[68:72], uint32(e.Saving))
		binary.LittleEndian.PutUint32(b[72:76], uint32(e.CanUse))
		buf = append(buf, b[:]...)
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeRadioInfo parses a base64-encoded run of RadioInfo entries.
func DecodeRadioInfo(encoded string) ([]RadioInfo, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, errf("base64 decode RadioInfo: %w", err)
	}
	if len(data)%radioInfoSize != 0 {
		return nil, errf("RadioInfo payload length %d is not a multiple of %d", len(data), radioInfoSize)
	}
	count := len(data) / radioInfoSize
	out := make([]RadioInfo, count)
	for i := 0; i < count; i++ {
		b := data[i*radioInfoSize : (i+1)*radioInfoSize]
		out[i] = RadioInfo{
			Position:  int32(binary.LittleEndian.Uint32(b[0:4])),
			FreqName:  readCString(b[4:36]),
			Freq:      readCString(b[36:68]),
			Code:      readCString(b[68:80]),
			RadioName: readCString(b[80:112]),
			RSType:    int32(binary.LittleEndian.Uint32(b[112:116])),
			IsCan:     int32(binary.LittleEndian.Uint32(b[116:120])),
		}
	}
	return out, nil
}

// EncodeRadioInfo packs entries and base64-encodes the result.
func EncodeRadioInfo(entries []RadioInfo) string {
	buf := make([]byte, 0, len(entries)*radioInfoSize)
	for _, e := range entries {
		var b [radioInfoSize]byte
		binary.LittleEndian.PutUint32(b[0:4], uint32(e.Position))
		copy(b[4:36], packCString(e.FreqName, 32))
		copy(b[36:68], packCString(e.Freq, 32))
		copy(b[68:80], packCString(e.Code, 12))
		copy(b[80:112], packCString(e.RadioName, 32))
		binary.LittleEndian.PutUint32(b[112:116], uint32(e.RSType))
		binary.LittleEndian.PutUint32(b[116:120], uint32(e.IsCan))
		buf = append(buf, b[:]...)
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeTelBtnInfo parses a base64-encoded run of TelBtnInfo entries.
func DecodeTelBtnInfo(encoded string) ([]TelBtnInfo, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, errf("base64 decode TelBtnInfo: %w", err)
	}
	if len(data)%telBtnInfoSize != 0 {
		return nil, errf("TelBtnInfo payload length %d is not a multiple of %d", len(data), telBtnInfoSize)
	}
	count := len(data) / telBtnInfoSize
	out := make([]TelBtnInfo, count)
	for i := 0; i < count; i++ {
		b := data[i*telBtnInfoSize : (i+1)*telBtnInfoSize]
		out[i] = TelBtnInfo{
			Position: int32(binary.LittleEndian.Uint32(b[0:4])),
			Name:     readCString(b[4:36]),
			Tel:      readCString(b[36:68]),
			Dial:     int32(binary.LittleEndian.Uint32(b[68:72])),
			CanUse:   int32(binary.LittleEndian.Uint32(b[72:76])),
			Type:     int32(binary.LittleEndian.Uint32(b[76:80])),
			Status:   binary.LittleEndian.Uint32(b[80:84]),
			DeptID:   int32(binary.LittleEndian.Uint32(b[84:88])),
		}
	}
	return out, nil
}

// EncodeTelBtnInfo packs entries and base64-encodes the result.
func EncodeTelBtnInfo(entries []TelBtnInfo) string {
	buf := make([]byte, 0, len(entries)*telBtnInfoSize)
	for _, e := range entries {
		var b [telBtnInfoSize]byte
		binary.LittleEndian.PutUint32(b[0:4], uint32(e.Position))
		copy(b[4:36], packCString(e.Name, 32))
		copy(b[36:68], packCString(e.Tel, 32))
		binary.LittleEndian.PutUint32(b[68:72], uint32(e.Dial))
		binary.LittleEndian.PutUint32(b[72:76], uint32(e.CanUse))
		binary.LittleEndian.PutUint32(b[76:80], uint32(e.Type))
		binary.LittleEndian.PutUint32(b[80:84], e.Status)
		binary.LittleEndian.PutUint32(b[84:88], uint32(e.DeptID))
		buf = append(buf, b[:]...)
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeFunBtnInfo parses a base64-encoded run of FunBtnInfo entries.
func DecodeFunBtnInfo(encoded string) ([]FunBtnInfo, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, errf("base64 decode FunBtnInfo: %w", err)
	}
	if len(data)%funBtnInfoSize != 0 {
		return nil, errf("FunBtnInfo payload length %d is not a multiple of %d", len(data), funBtnInfoSize)
	}
	count := len(data) / funBtnInfoSize
	out := make([]FunBtnInfo, count)
	for i := 0; i < count; i++ {
		b := data[i*funBtnInfoSize : (i+1)*funBtnInfoSize]
		out[i] = FunBtnInfo{
			Position: int32(binary.LittleEndian.Uint32(b[0:4])),
			Name:     readCString(b[4:36]),
			Type:     int32(binary.LittleEndian.Uint32(b[36:40])),
		}
	}
	return out, nil
}

// EncodeFunBtnInfo packs entries and base64-encodes the result.
func EncodeFunBtnInfo(entries []FunBtnInfo) string {
	buf := make([]byte, 0, len(entries)*funBtnInfoSize)
	for _, e := range entries {
		var b [funBtnInfoSize]byte
		binary.LittleEndian.PutUint32(b[0:4], uint32(e.Position))
		copy(b[4:36], packCString(e.Name, 32))
		binary.LittleEndian.PutUint32(b[36:40], uint32(e.Type))
		buf = append(buf, b[:]...)
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeRoleInfo parses the single fixed-size role/channel catalog
// record carried on a register response.
func DecodeRoleInfo(encoded string) (RoleInfo, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return RoleInfo{}, errf("base64 decode RoleInfo: %w", err)
	}
	if len(data) < roleInfoSize {
		return RoleInfo{}, errf("RoleInfo payload length %d is shorter than %d", len(data), roleInfoSize)
	}

	var info RoleInfo
	for i := 0; i < roleChannelCount; i++ {
		start := i * roleChannelLength
		info.ChannelNum[i] = readCString(data[start : start+roleChannelLength])
	}

	rolesStart := roleChannelLength * roleChannelCount
	otherStart := rolesStart + roleRolesLength
	rolesStr := readCString(data[rolesStart:otherStart])
	if rolesStr != "" {
		info.Roles = strings.Split(rolesStr, "+")
	}

	otherEnd := otherStart + roleOtherChooseLength
	if otherEnd > len(data) {
		otherEnd = len(data)
	}
	otherStr := readCString(data[otherStart:otherEnd])
	if otherStr != "" {
		info.OtherChooseRoles = strings.Split(otherStr, "+")
	}

	return info, nil
}

// EncodeRoleInfo packs a RoleInfo record and base64-encodes the result.
func EncodeRoleInfo(info RoleInfo) string {
	buf := make([]byte, roleInfoSize)
	for i := 0; i < roleChannelCount && i < len(info.ChannelNum); i++ {
		start := i * roleChannelLength
		copy(buf[start:start+roleChannelLength], packCString(info.ChannelNum[i], roleChannelLength))
	}
	rolesStart := roleChannelLength * roleChannelCount
	otherStart := rolesStart + roleRolesLength
	copy(buf[rolesStart:otherStart], packCString(strings.Join(info.Roles, "+"), roleRolesLength))
	copy(buf[otherStart:otherStart+roleOtherChooseLength], packCString(strings.Join(info.OtherChooseRoles, "+"), roleOtherChooseLength))
	return base64.StdEncoding.EncodeToString(buf)
}
