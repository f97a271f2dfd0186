package http2

import "testing"

func collectSent(sink *[]Frame) func(Frame) {
	return func(f Frame) { *sink = append(*sink, f) }
}

func TestOpenViaEndStreamHeadersGoesHalfClosedLocal(t *testing.T) {
	table := NewStreamTable()
	s := NewStream(1, table, 65535)

	var active int
	s.On(":active", func(args ...any) { active++ })

	var sent []Frame
	if err := s.Send(&HeadersFrame{Stream: 1, EndStream: true, EndHeaders: true}, collectSent(&sent)); err != nil {
		t.Fatalf("Send HEADERS: %v", err)
	}
	if s.State != StateHalfClosedLocal {
		t.Fatalf("state = %v, want half-closed-local", s.State)
	}
	if active != 1 {
		t.Fatalf(":active fired %d times, want 1", active)
	}

	var closed int
	var closedCode ErrorCode
	s.On(":close", func(args ...any) {
		closed++
		closedCode = args[1].(ErrorCode)
	})
	if err := s.Receive(&DataFrame{Stream: 1, EndStream: true}, collectSent(&sent)); err != nil {
		t.Fatalf("Receive DATA: %v", err)
	}
	if s.State != StateClosed {
		t.Fatalf("state = %v, want closed", s.State)
	}
	if closed != 1 {
		t.Fatalf(":close fired %d times on graceful closure, want 1", closed)
	}
	if closedCode != ErrNoError {
		t.Fatalf(":close code = %v, want no-error for a graceful closure", closedCode)
	}
}

func TestIdleRecvDataIsProtocolError(t *testing.T) {
	table := NewStreamTable()
	s := NewStream(1, table, 65535)
	var sent []Frame
	err := s.Receive(&DataFrame{Stream: 1}, collectSent(&sent))
	if err == nil {
		t.Fatal("expected protocol error for DATA on idle stream")
	}
	se, ok := err.(*StreamError)
	if !ok {
		t.Fatalf("error type = %T, want *StreamError", err)
	}
	if se.Code != ErrProtocolError {
		t.Errorf("code = %v, want protocol-error", se.Code)
	}
	if s.State != StateClosed {
		t.Errorf("state = %v, want closed after stream error", s.State)
	}
	if len(sent) != 1 {
		t.Fatalf("expected 1 RST_STREAM sent, got %d", len(sent))
	}
	if _, ok := sent[0].(*RstStreamFrame); !ok {
		t.Fatalf("sent frame = %T, want *RstStreamFrame", sent[0])
	}
}

func TestClosedRecvAfterLocalResetIsIgnored(t *testing.T) {
	table := NewStreamTable()
	s := NewStream(1, table, 65535)
	var sent []Frame
	if err := s.Send(&RstStreamFrame{Stream: 1, ErrorCode: ErrCancel}, collectSent(&sent)); err != nil {
		t.Fatalf("Send RST_STREAM: %v", err)
	}
	if s.State != StateClosed || s.CloseReason != closeLocalReset {
		t.Fatalf("state=%v reason=%v, want closed/local-reset", s.State, s.CloseReason)
	}
	if err := s.Receive(&DataFrame{Stream: 1}, collectSent(&sent)); err != nil {
		t.Fatalf("Receive after local reset should be ignored, got error: %v", err)
	}
	if s.State != StateClosed {
		t.Fatalf("state changed after ignored frame: %v", s.State)
	}
}

func TestClosedRecvAfterRemoteResetIsStreamClosedError(t *testing.T) {
	table := NewStreamTable()
	s := NewStream(1, table, 65535)
	var closedCode ErrorCode
	s.On(":close", func(args ...any) { closedCode = args[1].(ErrorCode) })
	var sent []Frame
	// Open the stream first so RST_STREAM is a legal recv transition.
	if err := s.Send(&HeadersFrame{Stream: 1, EndHeaders: true}, collectSent(&sent)); err != nil {
		t.Fatalf("Send HEADERS: %v", err)
	}
	if err := s.Receive(&RstStreamFrame{Stream: 1, ErrorCode: ErrCancel}, collectSent(&sent)); err != nil {
		t.Fatalf("Receive RST_STREAM: %v", err)
	}
	if s.CloseReason != closeRemoteReset {
		t.Fatalf("close reason = %v, want remote-reset", s.CloseReason)
	}
	if closedCode != ErrCancel {
		t.Fatalf(":close code = %v, want the peer's RST_STREAM code (cancel)", closedCode)
	}
	err := s.Receive(&DataFrame{Stream: 1}, collectSent(&sent))
	if err == nil {
		t.Fatal("expected stream-closed error for DATA after remote reset")
	}
	se := err.(*StreamError)
	if se.Code != ErrStreamClosed {
		t.Errorf("code = %v, want stream-closed", se.Code)
	}
}

func TestExclusivePriorityReparentsSiblings(t *testing.T) {
	table := NewStreamTable()
	parent := NewStream(1, table, 65535)
	_ = parent
	a := NewStream(3, table, 65535)
	b := NewStream(5, table, 65535)
	a.Dependency = 1
	b.Dependency = 1

	child := NewStream(7, table, 65535)
	var sent []Frame
	hf := &HeadersFrame{
		Stream:      7,
		EndHeaders:  true,
		HasPriority: true,
		Priority:    Priority{Dependency: 1, Weight: 20, Exclusive: true},
	}
	if err := child.Receive(hf, collectSent(&sent)); err != nil {
		t.Fatalf("Receive HEADERS with priority: %v", err)
	}
	if a.Dependency != 7 || b.Dependency != 7 {
		t.Fatalf("siblings not re-parented: a.Dependency=%d b.Dependency=%d, want 7", a.Dependency, b.Dependency)
	}
	if child.Dependency != 1 || child.Weight != 20 {
		t.Fatalf("child priority not applied: dependency=%d weight=%d", child.Dependency, child.Weight)
	}
}

func TestQueueDataSplitsOversizePayload(t *testing.T) {
	table := NewStreamTable()
	s := NewStream(1, table, 1<<20)
	if err := s.Send(&HeadersFrame{Stream: 1, EndHeaders: true}, func(Frame) {}); err != nil {
		t.Fatalf("Send HEADERS: %v", err)
	}

	payload := make([]byte, maxDataFramePayload+100)
	var sent []Frame
	s.QueueData(payload, true, collectSent(&sent))

	// 2 DATA frames plus the post-end-stream WINDOW_UPDATE nudge, since the
	// queue is empty and the stream isn't fully closed (half-closed-local).
	if len(sent) != 3 {
		t.Fatalf("expected 2 DATA frames + 1 nudge, got %d frames", len(sent))
	}
	first := sent[0].(*DataFrame)
	second := sent[1].(*DataFrame)
	if _, ok := sent[2].(*WindowUpdateFrame); !ok {
		t.Fatalf("third sent frame = %T, want *WindowUpdateFrame nudge", sent[2])
	}
	if len(first.Payload) != maxDataFramePayload {
		t.Errorf("first frame payload = %d bytes, want %d", len(first.Payload), maxDataFramePayload)
	}
	if first.EndStream {
		t.Error("first frame should not carry end-stream")
	}
	if !second.EndStream {
		t.Error("last frame should carry end-stream")
	}
	if len(second.Payload) != 100 {
		t.Errorf("second frame payload = %d bytes, want 100", len(second.Payload))
	}
	if s.State != StateHalfClosedLocal {
		t.Errorf("state = %v, want half-closed-local after end-stream DATA", s.State)
	}
}

func TestDrainSendBufferWaitsForWindow(t *testing.T) {
	table := NewStreamTable()
	s := NewStream(1, table, 5)
	if err := s.Send(&HeadersFrame{Stream: 1, EndHeaders: true}, func(Frame) {}); err != nil {
		t.Fatalf("Send HEADERS: %v", err)
	}

	var sent []Frame
	s.QueueData([]byte("hello world"), false, collectSent(&sent))
	if len(sent) != 0 {
		t.Fatalf("expected no frames sent with window 5 and an 11-byte chunk, got %d", len(sent))
	}
	if len(s.SendBuffer) == 0 {
		t.Fatal("expected payload retained in send buffer")
	}

	s.Window += 20
	s.DrainSendBuffer(collectSent(&sent))
	if len(sent) != 1 {
		t.Fatalf("expected 1 frame sent after window increase, got %d", len(sent))
	}
	if len(s.SendBuffer) != 0 {
		t.Fatalf("send buffer not drained: %d remaining", len(s.SendBuffer))
	}
}

func TestNoteHeadersEmitsHeadersEvent(t *testing.T) {
	table := NewStreamTable()
	s := NewStream(1, table, 65535)

	var got []HeaderField
	fired := 0
	s.On(":headers", func(args ...any) {
		fired++
		got = args[1].([]HeaderField)
	})

	decoded := []HeaderField{{":status", "200"}, {"content-type", "text/plain"}}
	s.NoteHeaders(decoded)

	if fired != 1 {
		t.Fatalf(":headers fired %d times, want 1", fired)
	}
	if len(got) != 2 || got[0] != decoded[0] || got[1] != decoded[1] {
		t.Fatalf(":headers payload = %+v, want %+v", got, decoded)
	}
}

func TestConnectStreamRestrictedAfterAuthorization(t *testing.T) {
	table := NewStreamTable()
	s := NewStream(1, table, 65535)
	s.MarkConnect()
	var sent []Frame
	if err := s.Send(&HeadersFrame{Stream: 1, EndHeaders: true}, collectSent(&sent)); err != nil {
		t.Fatalf("Send HEADERS: %v", err)
	}
	s.NoteHeaders([]HeaderField{{":status", "200"}})
	if !s.connectAuthorized {
		t.Fatal("expected connectAuthorized after 2xx :status")
	}

	if err := s.Send(&WindowUpdateFrame{Stream: 1, Increment: 1}, collectSent(&sent)); err != nil {
		t.Fatalf("WINDOW_UPDATE should remain allowed on an authorized CONNECT stream: %v", err)
	}
	err := s.Send(&PingFrame{}, collectSent(&sent))
	if err == nil {
		t.Fatal("expected PING-shaped frame to be rejected on an authorized CONNECT stream")
	}
}

func TestPumpQueueSendsFramesAndDrainsDeferredProducer(t *testing.T) {
	table := NewStreamTable()
	s := NewStream(1, table, 1<<20)
	if err := s.Send(&HeadersFrame{Stream: 1, EndHeaders: true}, func(Frame) {}); err != nil {
		t.Fatalf("Send HEADERS: %v", err)
	}

	s.EnqueueFrame(&DataFrame{Stream: 1, Payload: []byte("a")})

	calls := 0
	s.EnqueueProducer(func() ([]Frame, bool) {
		calls++
		if calls == 1 {
			return []Frame{
				&DataFrame{Stream: 1, Payload: []byte("b")},
				&DataFrame{Stream: 1, Payload: []byte("c")},
			}, true
		}
		return []Frame{&DataFrame{Stream: 1, Payload: []byte("d"), EndStream: true}}, false
	})

	var sent []Frame
	s.PumpQueue(10, collectSent(&sent))

	// 4 DATA frames plus the post-end-stream WINDOW_UPDATE nudge (the queue
	// is empty and the stream is only half-closed-local, not fully closed).
	if len(sent) != 5 {
		t.Fatalf("expected 4 frames + 1 nudge, got %d", len(sent))
	}
	var payloads []byte
	for _, f := range sent {
		if df, ok := f.(*DataFrame); ok {
			payloads = append(payloads, df.Payload...)
		}
	}
	if string(payloads) != "abcd" {
		t.Fatalf("pumped payloads in order = %q, want %q", payloads, "abcd")
	}
	if _, ok := sent[len(sent)-1].(*WindowUpdateFrame); !ok {
		t.Fatalf("last sent frame = %T, want *WindowUpdateFrame nudge", sent[len(sent)-1])
	}
	if s.State != StateHalfClosedLocal {
		t.Fatalf("state = %v, want half-closed-local after end-stream frame drained", s.State)
	}
	if len(s.Queue) != 0 {
		t.Fatalf("expected queue empty after full drain, got %d entries", len(s.Queue))
	}
}
