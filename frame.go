package http2

import "fmt"

// FrameType is the 8-bit wire type field of a frame header (spec.md §4.1).
type FrameType uint8

const (
	FrameData         FrameType = 0x0
	FrameHeaders      FrameType = 0x1
	FramePriority     FrameType = 0x2
	FrameRstStream    FrameType = 0x3
	FrameSettings     FrameType = 0x4
	FramePushPromise  FrameType = 0x5
	FramePing         FrameType = 0x6
	FrameGoAway       FrameType = 0x7
	FrameWindowUpdate FrameType = 0x8
	FrameContinuation FrameType = 0x9
)

const (
	extensibleRangeStart   = 0x10
	extensibleRangeEnd     = 0xEF
	experimentalRangeStart = 0xF0
	experimentalRangeEnd   = 0xFF
)

var frameTypeNames = map[FrameType]string{
	FrameData:         "DATA",
	FrameHeaders:      "HEADERS",
	FramePriority:     "PRIORITY",
	FrameRstStream:    "RST_STREAM",
	FrameSettings:     "SETTINGS",
	FramePushPromise:  "PUSH_PROMISE",
	FramePing:         "PING",
	FrameGoAway:       "GOAWAY",
	FrameWindowUpdate: "WINDOW_UPDATE",
	FrameContinuation: "CONTINUATION",
}

func (t FrameType) String() string {
	if name, ok := frameTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("frame-type(%#x)", uint8(t))
}

// Flags is a bitmask of frame flags. Which bit means what is contextual on
// the frame's type (spec.md §4.1 "Flag bit positions").
type Flags uint8

const (
	flagBit0 Flags = 1 << 0 // end-stream (DATA/HEADERS), ack (SETTINGS/PING)
	flagBit1 Flags = 1 << 1 // end-segment (DATA/HEADERS)
	flagBit2 Flags = 1 << 2 // end-headers (HEADERS/PUSH_PROMISE/CONTINUATION)
	flagBit4 Flags = 1 << 4 // padded (DATA/HEADERS/PUSH_PROMISE)
	flagBit5 Flags = 1 << 5 // priority (HEADERS); priority-group (PRIORITY)
	flagBit6 Flags = 1 << 6 // priority-dependency (PRIORITY)
)

const (
	FlagEndStream         = flagBit0
	FlagEndSegment        = flagBit1
	FlagEndHeaders        = flagBit2
	FlagPadded            = flagBit4
	FlagPriority          = flagBit5
	FlagAck               = flagBit0
	FlagPriorityGroup     = flagBit5
	FlagPriorityDependency = flagBit6
)

const maxPayloadLength = 16383
const maxStreamID = 0x7FFFFFFF
const maxWindowIncrement = 0x7FFFFFFF

// SettingID is a SETTINGS frame parameter identifier (spec.md §6).
type SettingID uint16

const (
	SettingHeaderTableSize      SettingID = 0x1
	SettingEnablePush           SettingID = 0x2
	SettingMaxConcurrentStreams SettingID = 0x3
	SettingInitialWindowSize    SettingID = 0x4
)

var settingNames = map[SettingID]string{
	SettingHeaderTableSize:      "settings-header-table-size",
	SettingEnablePush:           "settings-enable-push",
	SettingMaxConcurrentStreams: "settings-max-concurrent-streams",
	SettingInitialWindowSize:    "settings-initial-window-size",
}

func (s SettingID) String() string {
	if name, ok := settingNames[s]; ok {
		return name
	}
	return fmt.Sprintf("setting(%#x)", uint16(s))
}

// Priority is the per-stream priority payload shared by HEADERS and
// PRIORITY frames (spec.md §3). Weight is the actual 1..256 value, not
// the wire-encoded weight-1 byte.
type Priority struct {
	Exclusive  bool
	Dependency uint32
	Weight     uint8
}

// DefaultPriority is what a HEADERS frame with no priority flag implies.
var DefaultPriority = Priority{Exclusive: false, Dependency: 0, Weight: 16}

func (p Priority) isDefault() bool {
	return !p.Exclusive && p.Dependency == 0 && (p.Weight == 16 || p.Weight == 0)
}

// Frame is the tagged-variant frame descriptor (spec.md §9 "Command
// dispatch polymorphism"): one concrete Go type per frame type, instead of
// the teacher's single struct with an untyped payload.
type Frame interface {
	Type() FrameType
	StreamID() uint32
}

type DataFrame struct {
	Stream     uint32
	EndStream  bool
	EndSegment bool
	Padded     bool
	// Payload is the frame payload. When Padded is true this is the raw
	// wire payload (pad-length byte, data, pad bytes) on Generate — the
	// encoder never manufactures padding itself — and is the already
	// depadded data on the result of Parse.
	Payload []byte
}

func (f *DataFrame) Type() FrameType   { return FrameData }
func (f *DataFrame) StreamID() uint32  { return f.Stream }

type HeadersFrame struct {
	Stream     uint32
	EndStream  bool
	EndSegment bool
	EndHeaders bool
	Padded     bool
	Priority   Priority
	// HasPriority marks whether the descriptor carries priority info at
	// all, independent of whether the values happen to equal the
	// defaults. Generate synthesizes the wire priority flag/prefix based
	// on the Priority values themselves (spec.md §4.1), not this field;
	// HasPriority only distinguishes "no priority section" from "explicit
	// default priority" for callers that care.
	HasPriority bool
	Payload     []byte
}

func (f *HeadersFrame) Type() FrameType  { return FrameHeaders }
func (f *HeadersFrame) StreamID() uint32 { return f.Stream }

type PriorityFrame struct {
	Stream   uint32
	Priority Priority
}

func (f *PriorityFrame) Type() FrameType  { return FramePriority }
func (f *PriorityFrame) StreamID() uint32 { return f.Stream }

type RstStreamFrame struct {
	Stream    uint32
	ErrorCode ErrorCode
}

func (f *RstStreamFrame) Type() FrameType  { return FrameRstStream }
func (f *RstStreamFrame) StreamID() uint32 { return f.Stream }

type Setting struct {
	ID    SettingID
	Value uint32
}

type SettingsFrame struct {
	Ack bool
	// Settings holds symbolic (known) parameters.
	Settings []Setting
	// Extensible holds numeric ids this codec does not name symbolically;
	// encoding never fails for entries here (spec.md §4.1).
	Extensible map[uint16]uint32
}

func (f *SettingsFrame) Type() FrameType  { return FrameSettings }
func (f *SettingsFrame) StreamID() uint32 { return 0 }

type PushPromiseFrame struct {
	Stream           uint32
	EndHeaders       bool
	Padded           bool
	PromisedStreamID uint32
	Payload          []byte
}

func (f *PushPromiseFrame) Type() FrameType  { return FramePushPromise }
func (f *PushPromiseFrame) StreamID() uint32 { return f.Stream }

type PingFrame struct {
	Ack  bool
	Data [8]byte
}

func (f *PingFrame) Type() FrameType  { return FramePing }
func (f *PingFrame) StreamID() uint32 { return 0 }

type GoAwayFrame struct {
	LastStreamID uint32
	ErrorCode    ErrorCode
	DebugData    []byte
}

func (f *GoAwayFrame) Type() FrameType  { return FrameGoAway }
func (f *GoAwayFrame) StreamID() uint32 { return 0 }

type WindowUpdateFrame struct {
	Stream    uint32
	Increment uint32
}

func (f *WindowUpdateFrame) Type() FrameType  { return FrameWindowUpdate }
func (f *WindowUpdateFrame) StreamID() uint32 { return f.Stream }

type ContinuationFrame struct {
	Stream     uint32
	EndHeaders bool
	Payload    []byte
}

func (f *ContinuationFrame) Type() FrameType  { return FrameContinuation }
func (f *ContinuationFrame) StreamID() uint32 { return f.Stream }

// UnknownFrame preserves frames in the extensible (0x10-0xEF) or
// experimental (0xF0-0xFF) ranges verbatim, including the original numeric
// type code, per spec.md §9's explicit "round-trip the type-code override"
// decision.
type UnknownFrame struct {
	TypeCode uint8
	Stream   uint32
	Flags    Flags
	Payload  []byte
}

func (f *UnknownFrame) Type() FrameType  { return FrameType(f.TypeCode) }
func (f *UnknownFrame) StreamID() uint32 { return f.Stream }

// Generate serializes a frame descriptor into its 8-byte-header-plus-
// payload wire form (spec.md §4.1). All validation failures are reported
// as *CompressionError.
func Generate(f Frame) ([]byte, error) {
	out, err := generate(f)
	if err == nil {
		LogFrame(f.Type().String(), f.StreamID(), len(out)-8, "")
	}
	return out, err
}

func generate(f Frame) ([]byte, error) {
	switch v := f.(type) {
	case *DataFrame:
		return generateData(v)
	case *HeadersFrame:
		return generateHeaders(v)
	case *PriorityFrame:
		return generatePriority(v)
	case *RstStreamFrame:
		return generateRstStream(v)
	case *SettingsFrame:
		return generateSettings(v)
	case *PushPromiseFrame:
		return generatePushPromise(v)
	case *PingFrame:
		return generatePing(v)
	case *GoAwayFrame:
		return generateGoAway(v)
	case *WindowUpdateFrame:
		return generateWindowUpdate(v)
	case *ContinuationFrame:
		return generateContinuation(v)
	case *UnknownFrame:
		return generateUnknown(v)
	default:
		return nil, newCompressionError(ErrCompressionError, "unknown frame descriptor type %T", f)
	}
}

func checkStreamID(id uint32) error {
	if id > maxStreamID {
		return newCompressionError(ErrCompressionError, "stream id %d exceeds 2^31-1", id)
	}
	return nil
}

func checkPayloadLength(n int) error {
	if n > maxPayloadLength {
		return newCompressionError(ErrCompressionError, "payload length %d exceeds %d", n, maxPayloadLength)
	}
	return nil
}

func writeHeader(typ FrameType, flags Flags, streamID uint32, payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	putUint16(out[0:2], uint16(len(payload)))
	out[2] = byte(typ)
	out[3] = byte(flags)
	putUint32(out[4:8], streamID&maxStreamID)
	copy(out[8:], payload)
	return out
}

func priorityPrefix(p Priority) []byte {
	prefix := make([]byte, 5)
	dep := p.Dependency & maxStreamID
	if p.Exclusive {
		dep |= 0x80000000
	}
	putUint32(prefix[0:4], dep)
	weight := p.Weight
	if weight == 0 {
		weight = 1
	}
	prefix[4] = weight - 1
	return prefix
}

func generateData(f *DataFrame) ([]byte, error) {
	if err := checkStreamID(f.Stream); err != nil {
		return nil, err
	}
	if err := checkPayloadLength(len(f.Payload)); err != nil {
		return nil, err
	}
	var flags Flags
	if f.EndStream {
		flags |= FlagEndStream
	}
	if f.EndSegment {
		flags |= FlagEndSegment
	}
	if f.Padded {
		flags |= FlagPadded
	}
	return writeHeader(FrameData, flags, f.Stream, f.Payload), nil
}

func generateHeaders(f *HeadersFrame) ([]byte, error) {
	if err := checkStreamID(f.Stream); err != nil {
		return nil, err
	}
	var flags Flags
	if f.EndStream {
		flags |= FlagEndStream
	}
	if f.EndSegment {
		flags |= FlagEndSegment
	}
	if f.EndHeaders {
		flags |= FlagEndHeaders
	}
	if f.Padded {
		flags |= FlagPadded
	}

	payload := f.Payload
	if !f.Priority.isDefault() {
		flags |= FlagPriority
		prefix := priorityPrefix(f.Priority)
		payload = append(append([]byte(nil), prefix...), f.Payload...)
	}
	if err := checkPayloadLength(len(payload)); err != nil {
		return nil, err
	}
	return writeHeader(FrameHeaders, flags, f.Stream, payload), nil
}

func generatePriority(f *PriorityFrame) ([]byte, error) {
	if err := checkStreamID(f.Stream); err != nil {
		return nil, err
	}
	payload := priorityPrefix(f.Priority)
	return writeHeader(FramePriority, 0, f.Stream, payload), nil
}

func generateRstStream(f *RstStreamFrame) ([]byte, error) {
	if err := checkStreamID(f.Stream); err != nil {
		return nil, err
	}
	payload := make([]byte, 4)
	putUint32(payload, uint32(f.ErrorCode))
	return writeHeader(FrameRstStream, 0, f.Stream, payload), nil
}

func generateSettings(f *SettingsFrame) ([]byte, error) {
	if f.Ack {
		if len(f.Settings) != 0 || len(f.Extensible) != 0 {
			return nil, newCompressionError(ErrCompressionError, "SETTINGS ack must carry no parameters")
		}
		return writeHeader(FrameSettings, FlagAck, 0, nil), nil
	}

	payload := make([]byte, 0, 6*(len(f.Settings)+len(f.Extensible)))
	for _, s := range f.Settings {
		if _, known := settingNames[s.ID]; !known {
			return nil, newCompressionError(ErrCompressionError, "unknown symbolic settings id %v", s.ID)
		}
		entry := make([]byte, 6)
		putUint16(entry[0:2], uint16(s.ID))
		putUint32(entry[2:6], s.Value)
		payload = append(payload, entry...)
	}
	for id, value := range f.Extensible {
		entry := make([]byte, 6)
		putUint16(entry[0:2], id)
		putUint32(entry[2:6], value)
		payload = append(payload, entry...)
	}
	if err := checkPayloadLength(len(payload)); err != nil {
		return nil, err
	}
	LogSettings(settingsLogFields(f), false)
	return writeHeader(FrameSettings, 0, 0, payload), nil
}

func generatePushPromise(f *PushPromiseFrame) ([]byte, error) {
	if err := checkStreamID(f.Stream); err != nil {
		return nil, err
	}
	if err := checkStreamID(f.PromisedStreamID); err != nil {
		return nil, err
	}
	var flags Flags
	if f.EndHeaders {
		flags |= FlagEndHeaders
	}
	if f.Padded {
		flags |= FlagPadded
	}
	header := make([]byte, 4)
	putUint32(header, f.PromisedStreamID&maxStreamID)
	payload := append(header, f.Payload...)
	if err := checkPayloadLength(len(payload)); err != nil {
		return nil, err
	}
	return writeHeader(FramePushPromise, flags, f.Stream, payload), nil
}

func generatePing(f *PingFrame) ([]byte, error) {
	var flags Flags
	if f.Ack {
		flags |= FlagAck
	}
	return writeHeader(FramePing, flags, 0, f.Data[:]), nil
}

func generateGoAway(f *GoAwayFrame) ([]byte, error) {
	payload := make([]byte, 8+len(f.DebugData))
	putUint32(payload[0:4], f.LastStreamID&maxStreamID)
	putUint32(payload[4:8], uint32(f.ErrorCode))
	copy(payload[8:], f.DebugData)
	if err := checkPayloadLength(len(payload)); err != nil {
		return nil, err
	}
	return writeHeader(FrameGoAway, 0, 0, payload), nil
}

func generateWindowUpdate(f *WindowUpdateFrame) ([]byte, error) {
	if err := checkStreamID(f.Stream); err != nil {
		return nil, err
	}
	if f.Increment > maxWindowIncrement {
		return nil, newCompressionError(ErrCompressionError, "window increment %d exceeds 2^31-1", f.Increment)
	}
	payload := make([]byte, 4)
	putUint32(payload, f.Increment&maxWindowIncrement)
	return writeHeader(FrameWindowUpdate, 0, f.Stream, payload), nil
}

func generateContinuation(f *ContinuationFrame) ([]byte, error) {
	if err := checkStreamID(f.Stream); err != nil {
		return nil, err
	}
	if err := checkPayloadLength(len(f.Payload)); err != nil {
		return nil, err
	}
	var flags Flags
	if f.EndHeaders {
		flags |= FlagEndHeaders
	}
	return writeHeader(FrameContinuation, flags, f.Stream, f.Payload), nil
}

func generateUnknown(f *UnknownFrame) ([]byte, error) {
	if f.TypeCode < extensibleRangeStart {
		return nil, newCompressionError(ErrCompressionError, "type code %#x is not in the extensible or experimental range", f.TypeCode)
	}
	if err := checkStreamID(f.Stream); err != nil {
		return nil, err
	}
	if err := checkPayloadLength(len(f.Payload)); err != nil {
		return nil, err
	}
	return writeHeader(FrameType(f.TypeCode), f.Flags, f.Stream, f.Payload), nil
}

// Parse consumes the next frame from buf. It returns (nil, nil) and leaves
// buf untouched if fewer than 8 bytes, or fewer than 8+length bytes, are
// currently buffered (spec.md §4.1 "return nothing and consume nothing").
func Parse(buf *Buffer) (Frame, error) {
	mark := buf.Mark()

	header, ok := buf.PeekN(8)
	if !ok {
		return nil, nil
	}
	length := int(header[0])<<8 | int(header[1])
	typ := FrameType(header[2])
	flags := Flags(header[3])
	sid := (uint32(header[4])<<24 | uint32(header[5])<<16 | uint32(header[6])<<8 | uint32(header[7])) & maxStreamID

	if buf.Len() < 8+length {
		return nil, nil
	}
	buf.Discard(8)
	payload, _ := buf.ReadN(length)

	f, err := parsePayload(typ, flags, sid, payload)
	if err != nil {
		buf.Reset(mark)
		return nil, err
	}
	LogFrame(typ.String(), sid, length, fmt.Sprintf("%#02x", uint8(flags)))
	return f, nil
}

func parsePayload(typ FrameType, flags Flags, streamID uint32, payload []byte) (Frame, error) {
	switch typ {
	case FrameData:
		return parseData(flags, streamID, payload)
	case FrameHeaders:
		return parseHeaders(flags, streamID, payload)
	case FramePriority:
		return parsePriority(streamID, payload)
	case FrameRstStream:
		return parseRstStream(streamID, payload)
	case FrameSettings:
		return parseSettings(streamID, flags, payload)
	case FramePushPromise:
		return parsePushPromise(flags, streamID, payload)
	case FramePing:
		return parsePing(flags, payload)
	case FrameGoAway:
		return parseGoAway(payload)
	case FrameWindowUpdate:
		return parseWindowUpdate(streamID, payload)
	case FrameContinuation:
		return parseContinuation(flags, streamID, payload)
	default:
		return &UnknownFrame{TypeCode: uint8(typ), Stream: streamID, Flags: flags, Payload: payload}, nil
	}
}

// stripPadding implements the padded-flag payload transformation shared by
// DATA, HEADERS, and PUSH_PROMISE (spec.md §4.1).
func stripPadding(streamID uint32, payload []byte) ([]byte, error) {
	if len(payload) < 1 {
		return nil, newProtocolError(ErrProtocolError, "padded frame with empty payload on stream %d", streamID)
	}
	padLen := int(payload[0])
	rest := payload[1:]
	if padLen > len(rest) {
		return nil, newProtocolError(ErrProtocolError, "pad length %d exceeds remaining payload %d on stream %d", padLen, len(rest), streamID)
	}
	return rest[:len(rest)-padLen], nil
}

func parseData(flags Flags, streamID uint32, payload []byte) (Frame, error) {
	f := &DataFrame{
		Stream:     streamID,
		EndStream:  flags&FlagEndStream != 0,
		EndSegment: flags&FlagEndSegment != 0,
		Padded:     flags&FlagPadded != 0,
	}
	if f.Padded {
		data, err := stripPadding(streamID, payload)
		if err != nil {
			return nil, err
		}
		f.Payload = data
	} else {
		f.Payload = payload
	}
	return f, nil
}

func parsePriorityPrefix(streamID uint32, payload []byte) (Priority, []byte, error) {
	if len(payload) < 5 {
		return Priority{}, nil, newProtocolError(ErrProtocolError, "priority prefix truncated on stream %d", streamID)
	}
	raw := (uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3]))
	exclusive := raw&0x80000000 != 0
	dependency := raw & maxStreamID
	weight := payload[4] + 1
	if dependency == streamID {
		return Priority{}, nil, newProtocolError(ErrProtocolError, "stream %d depends on itself", streamID)
	}
	return Priority{Exclusive: exclusive, Dependency: dependency, Weight: weight}, payload[5:], nil
}

func parseHeaders(flags Flags, streamID uint32, payload []byte) (Frame, error) {
	f := &HeadersFrame{
		Stream:     streamID,
		EndStream:  flags&FlagEndStream != 0,
		EndSegment: flags&FlagEndSegment != 0,
		EndHeaders: flags&FlagEndHeaders != 0,
		Padded:     flags&FlagPadded != 0,
		Priority:   DefaultPriority,
	}

	rest := payload
	if f.Padded {
		var err error
		rest, err = stripPadding(streamID, rest)
		if err != nil {
			return nil, err
		}
	}

	if flags&FlagPriority != 0 {
		p, remainder, err := parsePriorityPrefix(streamID, rest)
		if err != nil {
			return nil, err
		}
		f.Priority = p
		f.HasPriority = true
		rest = remainder
	}

	f.Payload = rest
	return f, nil
}

func parsePriority(streamID uint32, payload []byte) (Frame, error) {
	p, _, err := parsePriorityPrefix(streamID, payload)
	if err != nil {
		return nil, err
	}
	return &PriorityFrame{Stream: streamID, Priority: p}, nil
}

func parseRstStream(streamID uint32, payload []byte) (Frame, error) {
	if len(payload) != 4 {
		return nil, newProtocolError(ErrProtocolError, "RST_STREAM payload length %d != 4", len(payload))
	}
	code := uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])
	return &RstStreamFrame{Stream: streamID, ErrorCode: ErrorCode(code)}, nil
}

func parseSettings(streamID uint32, flags Flags, payload []byte) (Frame, error) {
	if streamID != 0 {
		return nil, newProtocolError(ErrProtocolError, "SETTINGS frame with non-zero stream id %d", streamID)
	}
	if flags&FlagAck != 0 {
		if len(payload) != 0 {
			return nil, newProtocolError(ErrProtocolError, "SETTINGS ack with non-empty payload")
		}
		return &SettingsFrame{Ack: true}, nil
	}
	if len(payload)%6 != 0 {
		return nil, newProtocolError(ErrProtocolError, "SETTINGS payload length %d not a multiple of 6", len(payload))
	}
	f := &SettingsFrame{Extensible: make(map[uint16]uint32)}
	for i := 0; i+6 <= len(payload); i += 6 {
		id := SettingID(uint16(payload[i])<<8 | uint16(payload[i+1]))
		value := uint32(payload[i+2])<<24 | uint32(payload[i+3])<<16 | uint32(payload[i+4])<<8 | uint32(payload[i+5])
		if _, known := settingNames[id]; known {
			f.Settings = append(f.Settings, Setting{ID: id, Value: value})
		} else {
			f.Extensible[uint16(id)] = value
		}
	}
	LogSettings(settingsLogFields(f), false)
	return f, nil
}

func settingsLogFields(f *SettingsFrame) map[string]interface{} {
	out := make(map[string]interface{}, len(f.Settings)+len(f.Extensible))
	for _, s := range f.Settings {
		out[s.ID.String()] = s.Value
	}
	for id, v := range f.Extensible {
		out[SettingID(id).String()] = v
	}
	return out
}

func parsePushPromise(flags Flags, streamID uint32, payload []byte) (Frame, error) {
	rest := payload
	if flags&FlagPadded != 0 {
		var err error
		rest, err = stripPadding(streamID, rest)
		if err != nil {
			return nil, err
		}
	}
	if len(rest) < 4 {
		return nil, newProtocolError(ErrProtocolError, "PUSH_PROMISE payload truncated on stream %d", streamID)
	}
	promised := (uint32(rest[0])<<24 | uint32(rest[1])<<16 | uint32(rest[2])<<8 | uint32(rest[3])) & maxStreamID
	return &PushPromiseFrame{
		Stream:           streamID,
		EndHeaders:       flags&FlagEndHeaders != 0,
		Padded:           flags&FlagPadded != 0,
		PromisedStreamID: promised,
		Payload:          rest[4:],
	}, nil
}

func parsePing(flags Flags, payload []byte) (Frame, error) {
	if len(payload) != 8 {
		return nil, newProtocolError(ErrProtocolError, "PING payload length %d != 8", len(payload))
	}
	f := &PingFrame{Ack: flags&FlagAck != 0}
	copy(f.Data[:], payload)
	return f, nil
}

func parseGoAway(payload []byte) (Frame, error) {
	if len(payload) < 8 {
		return nil, newProtocolError(ErrProtocolError, "GOAWAY payload length %d < 8", len(payload))
	}
	last := (uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])) & maxStreamID
	code := uint32(payload[4])<<24 | uint32(payload[5])<<16 | uint32(payload[6])<<8 | uint32(payload[7])
	var debug []byte
	if len(payload) > 8 {
		debug = payload[8:]
	}
	return &GoAwayFrame{LastStreamID: last, ErrorCode: ErrorCode(code), DebugData: debug}, nil
}

func parseWindowUpdate(streamID uint32, payload []byte) (Frame, error) {
	if len(payload) != 4 {
		return nil, newProtocolError(ErrProtocolError, "WINDOW_UPDATE payload length %d != 4", len(payload))
	}
	inc := (uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])) & maxWindowIncrement
	return &WindowUpdateFrame{Stream: streamID, Increment: inc}, nil
}

func parseContinuation(flags Flags, streamID uint32, payload []byte) (Frame, error) {
	return &ContinuationFrame{
		Stream:     streamID,
		EndHeaders: flags&FlagEndHeaders != 0,
		Payload:    payload,
	}, nil
}
