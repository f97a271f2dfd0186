package http2

import (
	"bytes"
	"testing"
)

func TestGenerateHeadersFrameWireBytes(t *testing.T) {
	f := &HeadersFrame{
		Stream:     1,
		EndStream:  true,
		EndHeaders: true,
		Payload:    []byte{0x82, 0x86},
	}
	got, err := Generate(f)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []byte{0x00, 0x02, 0x01, 0x05, 0x00, 0x00, 0x00, 0x01, 0x82, 0x86}
	if !bytes.Equal(got, want) {
		t.Fatalf("Generate(HeadersFrame) = %#v, want %#v", got, want)
	}
}

func TestParseGenerateRoundTrip(t *testing.T) {
	frames := []Frame{
		&DataFrame{Stream: 3, EndStream: true, Payload: []byte("hello")},
		&HeadersFrame{Stream: 3, EndHeaders: true, Payload: []byte{0x82}},
		&PriorityFrame{Stream: 3, Priority: Priority{Dependency: 0, Weight: 32}},
		&RstStreamFrame{Stream: 3, ErrorCode: ErrCancel},
		&SettingsFrame{Settings: []Setting{{ID: SettingInitialWindowSize, Value: 65535}}},
		&PingFrame{Data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}},
		&GoAwayFrame{LastStreamID: 7, ErrorCode: ErrNoError},
		&WindowUpdateFrame{Stream: 3, Increment: 100},
		&ContinuationFrame{Stream: 3, EndHeaders: true, Payload: []byte{0x01}},
	}
	for _, f := range frames {
		wire, err := Generate(f)
		if err != nil {
			t.Fatalf("Generate(%T): %v", f, err)
		}
		buf := NewBuffer(wire)
		got, err := Parse(buf)
		if err != nil {
			t.Fatalf("Parse(%T): %v", f, err)
		}
		if got == nil {
			t.Fatalf("Parse(%T) returned nil", f)
		}
		if got.Type() != f.Type() {
			t.Errorf("Parse(%T) type = %v, want %v", f, got.Type(), f.Type())
		}
		if buf.Len() != 0 {
			t.Errorf("Parse(%T) left %d unread bytes", f, buf.Len())
		}
	}
}

func TestParseInsufficientBufferedBytesConsumesNothing(t *testing.T) {
	wire, _ := Generate(&PingFrame{Data: [8]byte{9, 9, 9, 9, 9, 9, 9, 9}})
	buf := NewBuffer(wire[:5])
	f, err := Parse(buf)
	if f != nil || err != nil {
		t.Fatalf("Parse(truncated header) = %v, %v, want nil, nil", f, err)
	}
	if buf.Len() != 5 {
		t.Fatalf("Parse(truncated header) consumed bytes, buf.Len() = %d, want 5", buf.Len())
	}

	buf2 := NewBuffer(wire[:8+4])
	f, err = Parse(buf2)
	if f != nil || err != nil {
		t.Fatalf("Parse(truncated payload) = %v, %v, want nil, nil", f, err)
	}
	if buf2.Len() != 8+4 {
		t.Fatalf("Parse(truncated payload) consumed bytes, buf.Len() = %d, want %d", buf2.Len(), 8+4)
	}
}

func TestParseDataFramePaddedOverrunIsProtocolError(t *testing.T) {
	// pad-length byte claims more padding than remains in the payload.
	payload := []byte{0x05, 'h', 'i'}
	wire := writeHeader(FrameData, FlagPadded, 1, payload)
	buf := NewBuffer(wire)
	_, err := Parse(buf)
	if err == nil {
		t.Fatal("expected protocol error for pad length exceeding payload")
	}
	pe, ok := err.(*ProtocolError)
	if !ok {
		t.Fatalf("error type = %T, want *ProtocolError", err)
	}
	if pe.Code != ErrProtocolError {
		t.Errorf("error code = %v, want protocol-error", pe.Code)
	}
	if buf.Len() != len(wire) {
		t.Errorf("Parse left %d bytes buffered after error, want the whole frame rewound (%d)", buf.Len(), len(wire))
	}
}

func TestParsePriorityRejectsSelfDependency(t *testing.T) {
	payload := make([]byte, 5)
	putUint32(payload, 4) // stream 4 depends on itself
	payload[4] = 15
	wire := writeHeader(FramePriority, 0, 4, payload)
	buf := NewBuffer(wire)
	if _, err := Parse(buf); err == nil {
		t.Fatal("expected protocol error for self-dependent PRIORITY frame")
	}
}

func TestParseSettingsRejectsNonZeroStream(t *testing.T) {
	wire := writeHeader(FrameSettings, 0, 1, make([]byte, 6))
	buf := NewBuffer(wire)
	if _, err := Parse(buf); err == nil {
		t.Fatal("expected protocol error for SETTINGS on non-zero stream")
	}
}

func TestParseUnknownFrameTypeRoundTripsTypeCode(t *testing.T) {
	wire := writeHeader(FrameType(0x2A), Flags(0), 5, []byte{0xAB, 0xCD})
	buf := NewBuffer(wire)
	f, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse(unknown type): %v", err)
	}
	uf, ok := f.(*UnknownFrame)
	if !ok {
		t.Fatalf("Parse(unknown type) = %T, want *UnknownFrame", f)
	}
	if uf.TypeCode != 0x2A {
		t.Errorf("TypeCode = %#x, want 0x2a", uf.TypeCode)
	}

	regen, err := Generate(uf)
	if err != nil {
		t.Fatalf("Generate(UnknownFrame): %v", err)
	}
	if !bytes.Equal(regen, wire) {
		t.Errorf("Generate(UnknownFrame) = %#v, want %#v", regen, wire)
	}
}
