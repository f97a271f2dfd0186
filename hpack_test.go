package http2

import (
	"bytes"
	"reflect"
	"testing"
)

func TestAppendIntegerSmall(t *testing.T) {
	got := appendInteger(nil, 0x00, 5, 10)
	want := []byte{0x0A}
	if !bytes.Equal(got, want) {
		t.Errorf("appendInteger(10,5) = %#v, want %#v", got, want)
	}
}

func TestAppendIntegerContinuation(t *testing.T) {
	got := appendInteger(nil, 0x00, 5, 1337)
	want := []byte{0x1F, 0x9A, 0x0A}
	if !bytes.Equal(got, want) {
		t.Errorf("appendInteger(1337,5) = %#v, want %#v", got, want)
	}
}

func TestReadPrefixedIntRoundTrip(t *testing.T) {
	for _, v := range []int{0, 5, 30, 31, 32, 1337, 100000} {
		encoded := appendInteger(nil, 0x00, 5, v)
		buf := NewBuffer(encoded)
		first, _ := buf.ReadByte()
		got, err := readPrefixedInt(buf, first, 5)
		if err != nil {
			t.Fatalf("value %d: %v", v, err)
		}
		if got != v {
			t.Errorf("value %d round-tripped as %d", v, got)
		}
	}
}

func TestStringPrimitiveLiteral(t *testing.T) {
	s := "www.example.com"
	encoded := appendString(nil, s, nil, false)
	if len(encoded) == 0 || encoded[0] != byte(len(s)) {
		t.Fatalf("leading byte = %#x, want length %d with no huffman flag", encoded[0], len(s))
	}
	buf := NewBuffer(encoded)
	dec := newHuffmanDecoder()
	got, err := readString(buf, dec)
	if err != nil {
		t.Fatalf("readString: %v", err)
	}
	if got != s {
		t.Errorf("readString = %q, want %q", got, s)
	}
}

func TestStaticIndexedCommonHeaders(t *testing.T) {
	c := NewContext(4096)
	headers := []HeaderField{
		{":method", "GET"},
		{":scheme", "http"},
		{":path", "/"},
		{":authority", "www.example.com"},
	}
	encoded, err := c.Encode(headers)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(encoded) < 2 || encoded[0] != 0x82 || encoded[1] != 0x86 {
		t.Fatalf("first two bytes = %#x %#x, want 0x82 0x86", encoded[0], encoded[1])
	}
	if len(c.dynamic) == 0 || c.dynamic[0].field != (HeaderField{":authority", "www.example.com"}) {
		t.Fatalf("dynamic table position 1 = %+v, want :authority entry", c.dynamic)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	enc := NewContext(4096)
	dec := NewContext(4096)

	blocks := [][]HeaderField{
		{
			{":method", "GET"},
			{":scheme", "http"},
			{":path", "/"},
			{":authority", "www.example.com"},
		},
		{
			{":method", "GET"},
			{":scheme", "http"},
			{":path", "/other"},
			{":authority", "www.example.com"},
			{"cache-control", "no-cache"},
		},
		{
			{":method", "GET"},
			{":scheme", "https"},
			{":path", "/"},
			{":authority", "www.example.com"},
		},
	}

	for i, headers := range blocks {
		encoded, err := enc.Encode(headers)
		if err != nil {
			t.Fatalf("block %d Encode: %v", i, err)
		}
		got, err := dec.Decode(encoded)
		if err != nil {
			t.Fatalf("block %d Decode: %v", i, err)
		}
		if !sameHeaderSet(got, headers) {
			t.Errorf("block %d: decoded %+v, want %+v", i, got, headers)
		}
		// Block 0 starts from an empty reference set, so every field is
		// newly activated in header order: decode must reproduce that
		// order exactly, not just the same multiset (this is what catches
		// a reversed reference set).
		if i == 0 && !reflect.DeepEqual(got, headers) {
			t.Errorf("block %d: decoded order %+v, want exact order %+v", i, got, headers)
		}
		if enc.dynamicSize != dec.dynamicSize || len(enc.dynamic) != len(dec.dynamic) {
			t.Errorf("block %d: encoder/decoder dynamic tables diverged", i)
		}
	}
}

// TestFreshBlockPreservesFieldOrder isolates the fix for a fresh (empty
// reference set) block: every field is newly activated, so activation
// order must equal the original header order exactly.
func TestFreshBlockPreservesFieldOrder(t *testing.T) {
	enc := NewContext(4096)
	dec := NewContext(4096)
	headers := []HeaderField{
		{":method", "GET"},
		{":scheme", "http"},
		{":path", "/"},
		{":authority", "www.example.com"},
	}
	encoded, err := enc.Encode(headers)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := dec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, headers) {
		t.Fatalf("decoded order %+v, want %+v", got, headers)
	}
}

func sameHeaderSet(a, b []HeaderField) bool {
	if len(a) != len(b) {
		return false
	}
	am := map[HeaderField]int{}
	for _, h := range a {
		am[h]++
	}
	bm := map[HeaderField]int{}
	for _, h := range b {
		bm[h]++
	}
	return reflect.DeepEqual(am, bm)
}

func TestCookieCrumbsCombineAndSplit(t *testing.T) {
	headers := []HeaderField{
		{"cookie", "a=1; b=2"},
		{"cookie", "c=3"},
	}
	pre := preprocess(headers)
	want := []HeaderField{{"cookie", "a=1"}, {"cookie", "b=2"}, {"cookie", "c=3"}}
	if !reflect.DeepEqual(pre, want) {
		t.Fatalf("preprocess cookies = %+v, want %+v", pre, want)
	}

	post := postprocess(pre)
	if len(post) != 1 || post[0].Name != "cookie" || post[0].Value != "a=1; b=2; c=3" {
		t.Fatalf("postprocess cookies = %+v", post)
	}
}

func TestSetCookieNotCombined(t *testing.T) {
	headers := []HeaderField{
		{"set-cookie", "a=1"},
		{"set-cookie", "b=2"},
	}
	pre := preprocess(headers)
	if !reflect.DeepEqual(pre, headers) {
		t.Fatalf("preprocess set-cookie = %+v, want unchanged %+v", pre, headers)
	}
}

func TestNameCombiningExceptSetCookie(t *testing.T) {
	headers := []HeaderField{
		{"x-custom", "a"},
		{"x-custom", "b"},
	}
	pre := preprocess(headers)
	if len(pre) != 1 || pre[0].Value != "a\x00b" {
		t.Fatalf("preprocess combine = %+v, want single NUL-joined entry", pre)
	}
}

func TestContextResetClearsReferenceSet(t *testing.T) {
	c := NewContext(4096)
	if _, err := c.Encode([]HeaderField{{":method", "GET"}}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(c.refSet) != 1 {
		t.Fatalf("expected 1 active reference-set entry, got %d", len(c.refSet))
	}
	evicted, _, err := c.process(&command{kind: cmdContextReset})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(c.refSet) != 0 {
		t.Errorf("reference set not cleared: %+v", c.refSet)
	}
	if len(evicted) != 1 {
		t.Errorf("expected reset to report 1 evicted header, got %d", len(evicted))
	}
}

func TestContextNewMaxSizeRejectsAboveSettingsLimit(t *testing.T) {
	c := NewContext(100)
	_, _, err := c.process(&command{kind: cmdContextNewMaxSize, newMaxSize: 200})
	if err == nil {
		t.Fatal("expected compression error for size above settings limit")
	}
}

func TestOversizeEntryClearsTable(t *testing.T) {
	c := NewContext(64)
	_, err := c.Encode([]HeaderField{{"x-name", "a-value-far-too-long-to-fit-in-a-tiny-table"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(c.dynamic) != 0 {
		t.Errorf("dynamic table should remain empty after an oversize insert, got %d entries", len(c.dynamic))
	}
}
