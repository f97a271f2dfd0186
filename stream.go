package http2

import (
	"strings"
	"sync"
)

// StreamState is a stream's externally observable lifecycle state
// (spec.md §3). Several states named in the data model — local-closed,
// remote-closed, local-rst, remote-rst, half-closing, closing — are
// transient transition-table results, not stored states: the transition
// logic below collapses all of them into StateClosed plus a closeReason
// recording which side ended it, per spec.md §4.3's "moves to its
// recorded closed field value" rule.
type StreamState int

const (
	StateIdle StreamState = iota
	StateReservedLocal
	StateReservedRemote
	StateOpen
	StateHalfClosedLocal
	StateHalfClosedRemote
	StateClosed
)

var streamStateNames = map[StreamState]string{
	StateIdle:             "idle",
	StateReservedLocal:    "reserved-local",
	StateReservedRemote:   "reserved-remote",
	StateOpen:             "open",
	StateHalfClosedLocal:  "half-closed-local",
	StateHalfClosedRemote: "half-closed-remote",
	StateClosed:           "closed",
}

func (s StreamState) String() string { return streamStateNames[s] }

// closeReason records which side, and how, closed a Stream, so a further
// frame arriving after closure can be told apart per spec.md §4.3's
// closed-row recv column ("previously remote-reset/remote-closed" vs
// "previously local-reset/local-closed").
type closeReason int

const (
	closeNone closeReason = iota
	closeLocalGraceful
	closeRemoteGraceful
	closeLocalReset
	closeRemoteReset
)

func (r closeReason) isRemote() bool {
	return r == closeRemoteGraceful || r == closeRemoteReset
}

func (r closeReason) isReset() bool {
	return r == closeLocalReset || r == closeRemoteReset
}

type direction int

const (
	dirSend direction = iota
	dirRecv
)

func dirName(d direction) string {
	if d == dirRecv {
		return "recv"
	}
	return "send"
}

// target is the raw result of a transition-table lookup, before local-
// closed/remote-closed/local-rst/remote-rst are collapsed to StateClosed.
type target int

const (
	targetStay target = iota
	targetIgnore
	targetIdle
	targetReservedLocal
	targetReservedRemote
	targetOpen
	targetHalfClosedLocal
	targetHalfClosedRemote
	targetLocalClosed
	targetRemoteClosed
	targetLocalRst
	targetRemoteRst
)

// connectAllowed is the frame-type allow-list a CONNECT stream is
// restricted to once its 2xx response has been observed (spec.md §4.3
// "Special subclass: CONNECT stream").
var connectAllowed = map[FrameType]bool{
	FrameData:          true,
	FrameRstStream:     true,
	FrameWindowUpdate:  true,
	FramePriority:      true,
}

// StreamTable is the connection-level collaborator required by spec.md §6
// ("a connection object exposing a mapping from stream-id to stream for
// dependency resolution"). Grounded on connection.go's streams map and
// streamsMu RWMutex.
type StreamTable struct {
	mu      sync.RWMutex
	streams map[uint32]*Stream
}

// NewStreamTable returns an empty table.
func NewStreamTable() *StreamTable {
	return &StreamTable{streams: make(map[uint32]*Stream)}
}

// Get returns the stream registered under id, if any.
func (t *StreamTable) Get(id uint32) (*Stream, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.streams[id]
	return s, ok
}

// Put registers a stream, replacing any prior entry with the same id.
func (t *StreamTable) Put(s *Stream) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streams[s.ID] = s
}

// Delete removes a stream from the table.
func (t *StreamTable) Delete(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.streams, id)
}

// All returns a snapshot of every registered stream, for priority
// re-parenting sweeps.
func (t *StreamTable) All() []*Stream {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Stream, 0, len(t.streams))
	for _, s := range t.streams {
		out = append(out, s)
	}
	return out
}

// queueEntry is one item of a Stream's send queue: either a ready frame
// or a deferred producer (spec.md §4.3 "Send queue").
type queueEntry struct {
	frame    Frame
	producer func() (frames []Frame, again bool)
}

// Stream is one HTTP/2 stream's state machine, flow-control accounting,
// and send scheduling (spec.md §3 "Stream", §4.3).
//
// Grounded on the teacher's stream.go (state field, flow-control window
// pair) and connection.go's streams map/handleWindowUpdateFrame/
// handlePriorityFrame, generalized from the teacher's 7-state RFC 7540
// enum and ad hoc handlers into the full 13-name transition table and
// event-driven queueing spec.md §4.3 requires.
type Stream struct {
	ID    uint32
	table *StreamTable

	State       StreamState
	CloseReason closeReason
	Err         error

	Weight     uint8
	Dependency uint32
	Exclusive  bool

	Window int32

	SendBuffer []*DataFrame
	Queue      []queueEntry

	events *Emitter

	isConnect         bool
	connectAuthorized bool
}

// NewStream creates a stream in the idle state with the given initial
// flow-control window and default priority (weight 16, no dependency).
func NewStream(id uint32, table *StreamTable, window int32) *Stream {
	s := &Stream{
		ID:     id,
		table:  table,
		State:  StateIdle,
		Weight: DefaultPriority.Weight,
		Window: window,
		events: NewEmitter(),
	}
	if table != nil {
		table.Put(s)
	}
	return s
}

// MarkConnect flags this stream as a CONNECT stream, activating the
// frame-type restriction once its response is authorized.
func (s *Stream) MarkConnect() { s.isConnect = true }

// On subscribes handler to one of this stream's lifecycle/payload events
// (:active, :reserved, :close, :data, :headers, :priority). No code path
// emits :half-close.
func (s *Stream) On(name string, handler EventHandler) { s.events.On(name, handler) }

// NoteHeaders feeds a HEADERS frame's decoded header list into the stream:
// it is the entry point by which the connection-owned HPACK context (never
// this package's concern, per spec.md §4.2's "one per direction" context
// vs. per-stream state split) hands decoded fields back. It emits the
// :headers payload event (spec.md §4.3 "Event emission") and, on a CONNECT
// stream, watches for the 2xx :status pseudo-header that authorizes the
// frame-type restriction ("After the 2xx response on a CONNECT stream").
func (s *Stream) NoteHeaders(decoded []HeaderField) {
	s.events.Emit(":headers", s, decoded)

	if !s.isConnect || s.connectAuthorized {
		return
	}
	for _, h := range decoded {
		if h.Name == ":status" && strings.HasPrefix(h.Value, "2") {
			s.connectAuthorized = true
			return
		}
	}
}

func endStreamOf(f Frame) bool {
	switch v := f.(type) {
	case *DataFrame:
		return v.EndStream
	case *HeadersFrame:
		return v.EndStream
	}
	return false
}

func priorityOf(f Frame) (Priority, bool) {
	switch v := f.(type) {
	case *HeadersFrame:
		if v.HasPriority {
			return v.Priority, true
		}
	case *PriorityFrame:
		return v.Priority, true
	}
	return Priority{}, false
}

// lookup implements the condensed transition table of spec.md §4.3. ok is
// false when the cell says "error"/"protocol-error"/"stream-closed error".
func (s *Stream) lookup(dir direction, ft FrameType, es bool) (tgt target, errCode ErrorCode, ok bool) {
	switch s.State {
	case StateIdle:
		if dir == dirSend {
			switch ft {
			case FrameHeaders:
				if es {
					return targetHalfClosedLocal, 0, true
				}
				return targetOpen, 0, true
			case FramePushPromise:
				return targetReservedLocal, 0, true
			case FrameRstStream:
				return targetLocalRst, 0, true
			}
			return targetStay, ErrProtocolError, false
		}
		switch ft {
		case FrameHeaders:
			if es {
				return targetHalfClosedRemote, 0, true
			}
			return targetOpen, 0, true
		case FramePushPromise:
			return targetReservedRemote, 0, true
		}
		return targetStay, ErrProtocolError, false

	case StateReservedLocal:
		if dir == dirSend {
			switch ft {
			case FrameHeaders:
				return targetHalfClosedRemote, 0, true
			case FrameRstStream:
				return targetLocalRst, 0, true
			}
			return targetStay, ErrProtocolError, false
		}
		switch ft {
		case FrameRstStream:
			return targetRemoteRst, 0, true
		case FramePriority:
			return targetStay, 0, true
		}
		return targetStay, ErrProtocolError, false

	case StateReservedRemote:
		if dir == dirSend {
			switch ft {
			case FrameRstStream:
				return targetLocalRst, 0, true
			case FramePriority:
				return targetStay, 0, true
			}
			return targetStay, ErrProtocolError, false
		}
		switch ft {
		case FrameHeaders:
			return targetHalfClosedLocal, 0, true
		case FrameRstStream:
			return targetRemoteRst, 0, true
		}
		return targetStay, ErrProtocolError, false

	case StateOpen:
		if dir == dirSend {
			switch ft {
			case FrameData, FrameHeaders:
				if es {
					return targetHalfClosedLocal, 0, true
				}
				return targetStay, 0, true
			case FrameRstStream:
				return targetLocalRst, 0, true
			}
			return targetStay, 0, true
		}
		switch ft {
		case FrameData, FrameHeaders:
			if es {
				return targetHalfClosedRemote, 0, true
			}
			return targetStay, 0, true
		case FrameRstStream:
			return targetRemoteRst, 0, true
		}
		return targetStay, 0, true

	case StateHalfClosedLocal:
		if dir == dirSend {
			switch ft {
			case FrameRstStream:
				return targetLocalRst, 0, true
			case FrameWindowUpdate:
				return targetStay, 0, true
			}
			return targetStay, ErrProtocolError, false
		}
		switch ft {
		case FrameData, FrameHeaders:
			if es {
				return targetRemoteClosed, 0, true
			}
			return targetStay, 0, true
		case FrameRstStream:
			return targetRemoteRst, 0, true
		case FrameWindowUpdate, FramePriority:
			return targetIgnore, 0, true
		}
		return targetStay, ErrProtocolError, false

	case StateHalfClosedRemote:
		if dir == dirSend {
			switch ft {
			case FrameData, FrameHeaders:
				if es {
					return targetLocalClosed, 0, true
				}
				return targetStay, 0, true
			case FrameRstStream:
				return targetLocalRst, 0, true
			}
			return targetStay, 0, true
		}
		switch ft {
		case FrameRstStream:
			return targetRemoteRst, 0, true
		case FrameWindowUpdate:
			return targetIgnore, 0, true
		case FramePriority:
			return targetStay, 0, true
		}
		return targetStay, ErrStreamClosed, false

	case StateClosed:
		if dir == dirSend {
			switch ft {
			case FrameRstStream, FramePriority:
				return targetStay, 0, true
			}
			return targetStay, ErrStreamClosed, false
		}
		if s.CloseReason.isRemote() {
			switch ft {
			case FrameRstStream, FramePriority:
				return targetStay, 0, true
			}
			return targetStay, ErrStreamClosed, false
		}
		return targetIgnore, 0, true
	}
	return targetStay, ErrInternalError, false
}

func concreteStateOf(t target) StreamState {
	switch t {
	case targetIdle:
		return StateIdle
	case targetReservedLocal:
		return StateReservedLocal
	case targetReservedRemote:
		return StateReservedRemote
	case targetOpen:
		return StateOpen
	case targetHalfClosedLocal:
		return StateHalfClosedLocal
	case targetHalfClosedRemote:
		return StateHalfClosedRemote
	}
	return StateClosed
}

// Send drives the send-direction transition for f and, on success,
// applies its side effects (priority updates, window accounting). send is
// invoked to actually write f (and, on a rejected transition, the
// resulting RST_STREAM) to the wire.
func (s *Stream) Send(f Frame, send func(Frame)) error {
	return s.transition(dirSend, f, send)
}

// Receive drives the recv-direction transition for f.
func (s *Stream) Receive(f Frame, send func(Frame)) error {
	return s.transition(dirRecv, f, send)
}

func (s *Stream) transition(dir direction, f Frame, send func(Frame)) error {
	ft := f.Type()

	if s.isConnect && s.connectAuthorized && !connectAllowed[ft] {
		return s.Error(ErrProtocolError, send)
	}

	es := endStreamOf(f)
	tgt, errCode, ok := s.lookup(dir, ft, es)
	if !ok {
		if errCode == 0 {
			errCode = ErrProtocolError
		}
		return s.Error(errCode, send)
	}

	prevState := s.State
	wasOpenish := prevState != StateIdle && prevState != StateReservedLocal && prevState != StateReservedRemote
	LogStream(s.ID, prevState.String(), ft.String(), map[string]interface{}{"direction": dirName(dir), "end_stream": es})

	if dir == dirSend && send != nil {
		send(f)
	}

	switch tgt {
	case targetStay, targetIgnore:
	case targetLocalClosed:
		s.State = StateClosed
		s.CloseReason = closeLocalGraceful
	case targetRemoteClosed:
		s.State = StateClosed
		s.CloseReason = closeRemoteGraceful
	case targetLocalRst:
		s.State = StateClosed
		s.CloseReason = closeLocalReset
	case targetRemoteRst:
		s.State = StateClosed
		s.CloseReason = closeRemoteReset
	default:
		s.State = concreteStateOf(tgt)
	}

	s.emitEntryEvents(prevState, tgt, wasOpenish)

	// Both graceful (local-closed/remote-closed) and reset (local-rst/
	// remote-rst) targets land on StateClosed and emit :close carrying the
	// error code, if any (spec.md §4.3's worked example: half-closed-local
	// receiving DATA{end-stream} "transitions to closed and emits :close").
	// :half-close is reserved for a half-closing outcome, which this
	// collapsed four-target model never produces.
	switch tgt {
	case targetLocalClosed, targetRemoteClosed:
		s.events.Emit(":close", s, ErrNoError)
	case targetLocalRst, targetRemoteRst:
		s.events.Emit(":close", s, f.(*RstStreamFrame).ErrorCode)
	}

	if tgt != targetIgnore {
		s.applyPayload(dir, f, send)
	}

	if dir == dirRecv && ft == FrameWindowUpdate {
		wu := f.(*WindowUpdateFrame)
		s.Window += int32(wu.Increment)
		LogFlowControl(s.ID, s.Window, "increment")
		s.DrainSendBuffer(send)
	}
	if dir == dirSend && ft == FrameData {
		df := f.(*DataFrame)
		s.Window -= int32(len(df.Payload))
		LogFlowControl(s.ID, s.Window, "decrement")
	}

	return nil
}

func (s *Stream) emitEntryEvents(prev StreamState, tgt target, wasOpenish bool) {
	switch tgt {
	case targetOpen:
		s.events.Emit(":active", s)
	case targetReservedLocal, targetReservedRemote:
		s.events.Emit(":reserved", s)
	case targetHalfClosedLocal, targetHalfClosedRemote:
		if !wasOpenish {
			s.events.Emit(":active", s)
		}
	}
}

func (s *Stream) applyPayload(dir direction, f Frame, send func(Frame)) {
	switch v := f.(type) {
	case *DataFrame:
		s.events.Emit(":data", s, v)
	case *HeadersFrame:
		if p, ok := priorityOf(f); ok {
			s.applyPriority(p)
			s.events.Emit(":priority", s, p.Weight, p.Dependency, p.Exclusive)
		}
	case *PriorityFrame:
		s.applyPriority(v.Priority)
		s.events.Emit(":priority", s, v.Priority.Weight, v.Priority.Dependency, v.Priority.Exclusive)
	}
}

// applyPriority updates weight/dependency and, for an exclusive
// dependency, re-points every other stream currently depending on the
// same parent onto this stream (spec.md §4.3 "Priority").
func (s *Stream) applyPriority(p Priority) {
	weight := p.Weight
	if weight == 0 {
		weight = 16
	}
	s.Weight = weight
	s.Dependency = p.Dependency
	s.Exclusive = p.Exclusive

	if !p.Exclusive || s.table == nil {
		return
	}
	if p.Dependency != 0 {
		if _, exists := s.table.Get(p.Dependency); !exists {
			return
		}
	}
	for _, other := range s.table.All() {
		if other.ID == s.ID {
			continue
		}
		if other.Dependency == p.Dependency {
			other.Dependency = s.ID
		}
	}
}

// Error implements spec.md §4.3 "Stream error": records the error,
// sends RST_STREAM with it (protocol-error in place of the generic
// stream-error kind) unless already closed, and returns it to the caller.
func (s *Stream) Error(kind ErrorCode, send func(Frame)) error {
	wireCode := kind
	if kind == errStreamError {
		wireCode = ErrProtocolError
	}
	s.Err = newStreamError(s.ID, kind, "stream %d: %s", s.ID, wireCode)
	LogError(s.Err, "stream-error", map[string]interface{}{"stream_id": s.ID, "code": wireCode.String()})
	if s.State != StateClosed {
		if send != nil {
			send(&RstStreamFrame{Stream: s.ID, ErrorCode: wireCode})
		}
		s.State = StateClosed
		s.CloseReason = closeLocalReset
		s.events.Emit(":close", s, wireCode)
	}
	return s.Err
}

const maxDataFramePayload = maxPayloadLength

// splitDataFrames breaks payload into successive DATA frames no larger
// than 16,383 bytes each, the last one (if any) carrying end-stream when
// the original call requested it (spec.md §4.3 "Flow control").
func splitDataFrames(streamID uint32, payload []byte, endStream bool) []*DataFrame {
	if len(payload) == 0 {
		return []*DataFrame{{Stream: streamID, EndStream: endStream}}
	}
	var frames []*DataFrame
	for len(payload) > 0 {
		n := len(payload)
		if n > maxDataFramePayload {
			n = maxDataFramePayload
		}
		chunk := payload[:n]
		payload = payload[n:]
		f := &DataFrame{Stream: streamID, Payload: chunk}
		if len(payload) == 0 {
			f.EndStream = endStream
		}
		frames = append(frames, f)
	}
	return frames
}

// QueueData splits payload and appends the resulting DATA frames to the
// send buffer, then attempts to drain what the current window allows.
func (s *Stream) QueueData(payload []byte, endStream bool, send func(Frame)) {
	s.SendBuffer = append(s.SendBuffer, splitDataFrames(s.ID, payload, endStream)...)
	s.DrainSendBuffer(send)
}

// DrainSendBuffer sends buffered DATA frames while the flow-control
// window covers each one's payload, stopping (not erroring) once it
// doesn't (spec.md §4.3 "if window space is insufficient, the remainder
// is retained in the send buffer until further WINDOW_UPDATE").
func (s *Stream) DrainSendBuffer(send func(Frame)) {
	for len(s.SendBuffer) > 0 {
		f := s.SendBuffer[0]
		if int32(len(f.Payload)) > s.Window {
			return
		}
		s.SendBuffer = s.SendBuffer[1:]
		if err := s.Send(f, send); err != nil {
			return
		}
		s.nudgeIfDrained(f, send)
	}
}

// nudgeIfDrained implements spec.md §4.3's send-queue nudge: after
// sending a frame carrying end-stream, if the queue is empty and the
// stream is not yet closed, send a 1-byte-increment WINDOW_UPDATE.
func (s *Stream) nudgeIfDrained(f Frame, send func(Frame)) {
	if !endStreamOf(f) {
		return
	}
	if len(s.Queue) != 0 || s.State == StateClosed {
		return
	}
	send(&WindowUpdateFrame{Stream: s.ID, Increment: 1})
}

// EnqueueFrame appends a ready frame to the send queue.
func (s *Stream) EnqueueFrame(f Frame) {
	s.Queue = append(s.Queue, queueEntry{frame: f})
}

// EnqueueProducer appends a deferred producer to the send queue.
func (s *Stream) EnqueueProducer(p func() (frames []Frame, again bool)) {
	s.Queue = append(s.Queue, queueEntry{producer: p})
}

// PumpQueue processes up to n queue entries (spec.md §4.3 "Send queue"):
// frames are sent directly; a deferred producer is invoked and may yield
// frames (the first sent immediately, the rest requeued at the front in
// order) and/or ask to be re-invoked by requeuing itself after them.
func (s *Stream) PumpQueue(n int, send func(Frame)) {
	for i := 0; i < n && len(s.Queue) > 0; i++ {
		entry := s.Queue[0]
		s.Queue = s.Queue[1:]

		if entry.frame != nil {
			if err := s.Send(entry.frame, send); err == nil {
				s.nudgeIfDrained(entry.frame, send)
			}
			continue
		}

		frames, again := entry.producer()
		var requeue []queueEntry
		if len(frames) > 0 {
			first := frames[0]
			if err := s.Send(first, send); err == nil {
				s.nudgeIfDrained(first, send)
			}
			for _, rf := range frames[1:] {
				requeue = append(requeue, queueEntry{frame: rf})
			}
		}
		if again {
			requeue = append(requeue, entry)
		}
		s.Queue = append(requeue, s.Queue...)
	}
}
