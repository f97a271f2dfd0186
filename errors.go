package http2

import "fmt"

// ErrorCode is the HTTP/2 error-code enum used by RST_STREAM, GOAWAY, and
// as the classification carried on protocol/compression errors raised by
// this package. Numeric values per RFC 7540 Section 7.
type ErrorCode uint32

const (
	ErrNoError            ErrorCode = 0x0
	ErrProtocolError      ErrorCode = 0x1
	ErrInternalError      ErrorCode = 0x2
	ErrFlowControlError   ErrorCode = 0x3
	ErrSettingsTimeout    ErrorCode = 0x4
	ErrStreamClosed       ErrorCode = 0x5
	ErrFrameSizeError     ErrorCode = 0x6
	ErrRefusedStream      ErrorCode = 0x7
	ErrCancel             ErrorCode = 0x8
	ErrCompressionError   ErrorCode = 0x9
	ErrConnectError       ErrorCode = 0xa
	ErrEnhanceYourCalm    ErrorCode = 0xb
	ErrInadequateSecurity ErrorCode = 0xc

	// errStreamError is the generic, unspecialized kind a caller may pass
	// to Stream.Error; it is never sent on the wire. Per spec.md the
	// outbound RST_STREAM in that case carries ErrProtocolError instead.
	errStreamError ErrorCode = 0xffffffff
)

var errorCodeNames = map[ErrorCode]string{
	ErrNoError:            "no-error",
	ErrProtocolError:      "protocol-error",
	ErrInternalError:      "internal-error",
	ErrFlowControlError:   "flow-control-error",
	ErrSettingsTimeout:    "settings-timeout",
	ErrStreamClosed:       "stream-closed",
	ErrFrameSizeError:     "frame-size-error",
	ErrRefusedStream:      "refused-stream",
	ErrCancel:             "cancel",
	ErrCompressionError:   "compression-error",
	ErrConnectError:       "connect-error",
	ErrEnhanceYourCalm:    "enhance-your-calm",
	ErrInadequateSecurity: "inadequate-security",
	errStreamError:        "stream-error",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("error-code(%#x)", uint32(c))
}

// CompressionError is raised by the HPACK codec on table-limit violations
// or invalid dynamic-table-size directives, and by the frame codec on
// invalid field values at encode time. Connection-fatal per spec.md §7.
type CompressionError struct {
	Code    ErrorCode
	Message string
	// Frame or header descriptor that triggered the error, if any.
	Context any
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("http2: compression error (%s): %s", e.Code, e.Message)
}

func newCompressionError(code ErrorCode, format string, args ...any) *CompressionError {
	return &CompressionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ProtocolError is raised by the frame parser on structural violations and
// by the stream state machine on disallowed transitions. Named codes such
// as StreamClosed or RefusedStream are carried in Code.
type ProtocolError struct {
	Code    ErrorCode
	Message string
	Context any
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("http2: protocol error (%s): %s", e.Code, e.Message)
}

func newProtocolError(code ErrorCode, format string, args ...any) *ProtocolError {
	return &ProtocolError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// StreamError is surfaced to the caller by the stream state machine
// whenever a frame is rejected. Code is the kind passed to Stream.Error;
// that is also the code sent in the accompanying RST_STREAM, except for
// the generic stream-error kind, for which ErrProtocolError is sent.
type StreamError struct {
	StreamID uint32
	Code     ErrorCode
	Message  string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("http2: stream %d error (%s): %s", e.StreamID, e.Code, e.Message)
}

func newStreamError(streamID uint32, code ErrorCode, format string, args ...any) *StreamError {
	return &StreamError{StreamID: streamID, Code: code, Message: fmt.Sprintf(format, args...)}
}
