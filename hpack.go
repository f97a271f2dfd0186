package http2

import (
	"strings"
)

// appendInteger appends value using an N-bit-prefix integer (HPACK
// Appendix B primitive), ORing pattern into the leading byte. Grounded on
// the teacher's encodeInteger, adapted to return the pattern byte inline
// instead of always starting a fresh byte.
func appendInteger(buf []byte, pattern byte, prefixBits int, value int) []byte {
	mask := (1 << uint(prefixBits)) - 1
	if value < mask {
		return append(buf, pattern|byte(value))
	}
	buf = append(buf, pattern|byte(mask))
	value -= mask
	for value >= 128 {
		buf = append(buf, byte(value%128+128))
		value /= 128
	}
	return append(buf, byte(value))
}

// readPrefixedInt decodes the continuation of an N-bit-prefix integer
// whose leading byte (already consumed from the wire) is first.
func readPrefixedInt(buf *Buffer, first byte, prefixBits int) (int, error) {
	mask := (1 << uint(prefixBits)) - 1
	v := int(first) & mask
	if v < mask {
		return v, nil
	}
	shift := uint(0)
	for {
		b, ok := buf.ReadByte()
		if !ok {
			return 0, newCompressionError(ErrCompressionError, "truncated integer primitive")
		}
		v += int(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift > 28 {
			return 0, newCompressionError(ErrCompressionError, "integer primitive too large")
		}
	}
	return v, nil
}

// readIntegerFresh reads a full N-bit-prefix integer starting at the next
// unread byte (used for the value that follows a context/new-max-size
// marker byte, which itself carries no prefix bits).
func readIntegerFresh(buf *Buffer, prefixBits int) (int, error) {
	first, ok := buf.ReadByte()
	if !ok {
		return 0, newCompressionError(ErrCompressionError, "truncated integer primitive")
	}
	return readPrefixedInt(buf, first, prefixBits)
}

// appendString appends a string primitive: a 7-bit-prefix length (with the
// top bit of the leading byte as the Huffman flag) followed by the raw or
// Huffman-coded bytes. useHuffman is taken as given so callers (and tests)
// can force either representation; Context.Encode decides it via
// huffmanEncoder.worthEncoding.
func appendString(buf []byte, s string, huff *huffmanEncoder, useHuffman bool) []byte {
	if useHuffman {
		encoded := huff.Encode(s)
		buf = appendInteger(buf, 0x80, 7, len(encoded))
		return append(buf, encoded...)
	}
	buf = appendInteger(buf, 0x00, 7, len(s))
	return append(buf, s...)
}

// readString decodes a string primitive. Decoded bytes are returned
// as-is: a Go string is a byte sequence regardless of validity as UTF-8,
// so no separate "byte-exact fallback" path is needed.
func readString(buf *Buffer, huffDec *huffmanDecoder) (string, error) {
	first, ok := buf.ReadByte()
	if !ok {
		return "", newCompressionError(ErrCompressionError, "truncated string primitive")
	}
	huffman := first&0x80 != 0
	length, err := readPrefixedInt(buf, first, 7)
	if err != nil {
		return "", err
	}
	data, ok := buf.ReadN(length)
	if !ok {
		return "", newCompressionError(ErrCompressionError, "string primitive declares length %d beyond buffered data", length)
	}
	if huffman {
		return huffDec.Decode(data)
	}
	return string(data), nil
}

// cmdKind identifies which of the five command patterns (spec.md §4.2)
// a command instance represents.
type cmdKind int

const (
	cmdIndexed cmdKind = iota
	cmdLiteralIncremental
	cmdLiteralWithoutIndexing
	cmdLiteralNeverIndexed
	cmdContextReset
	cmdContextNewMaxSize
)

// command is the decoded (or to-be-encoded) representation of a single
// HPACK instruction.
type command struct {
	kind cmdKind

	index int // combined-space index; 0 means "literal name follows"
	name  string
	value string

	newMaxSize int
}

// encodeCommand serializes cmd to its wire bytes. Bit layout is this
// package's own choice (spec.md leaves it open beyond naming the five
// patterns and their nominal prefix widths); it is self-consistent for
// round-tripping through decodeCommand.
func (c *Context) encodeCommand(cmd *command) []byte {
	switch cmd.kind {
	case cmdIndexed:
		return appendInteger(nil, 0x80, 7, cmd.index)
	case cmdLiteralIncremental:
		return c.encodeLiteral(cmd, 0x40, 6)
	case cmdLiteralWithoutIndexing:
		return c.encodeLiteral(cmd, 0x00, 4)
	case cmdLiteralNeverIndexed:
		return c.encodeLiteral(cmd, 0x10, 4)
	case cmdContextReset:
		return []byte{0x30}
	case cmdContextNewMaxSize:
		buf := []byte{0x20}
		return appendInteger(buf, 0x00, 7, cmd.newMaxSize)
	}
	return nil
}

func (c *Context) encodeLiteral(cmd *command, pattern byte, prefixBits int) []byte {
	buf := appendInteger(nil, pattern, prefixBits, cmd.index)
	if cmd.index == 0 {
		buf = appendString(buf, cmd.name, c.huffEnc, c.huffEnc.worthEncoding(cmd.name))
	}
	buf = appendString(buf, cmd.value, c.huffEnc, c.huffEnc.worthEncoding(cmd.value))
	return buf
}

// decodeCommand reads one command from buf, dispatching on the leading
// byte's pattern bits (spec.md §4.2 "Command representation").
func (c *Context) decodeCommand(buf *Buffer) (*command, error) {
	first, ok := buf.ReadByte()
	if !ok {
		return nil, newCompressionError(ErrCompressionError, "truncated command")
	}

	switch {
	case first&0x80 != 0:
		idx, err := readPrefixedInt(buf, first, 7)
		if err != nil {
			return nil, err
		}
		return &command{kind: cmdIndexed, index: idx}, nil

	case first&0xc0 == 0x40:
		return c.decodeLiteral(buf, first, 6, cmdLiteralIncremental)

	case first&0xe0 == 0x20:
		if first&0x10 != 0 {
			return &command{kind: cmdContextReset}, nil
		}
		size, err := readIntegerFresh(buf, 7)
		if err != nil {
			return nil, err
		}
		return &command{kind: cmdContextNewMaxSize, newMaxSize: size}, nil

	case first&0xf0 == 0x10:
		return c.decodeLiteral(buf, first, 4, cmdLiteralNeverIndexed)

	default:
		return c.decodeLiteral(buf, first, 4, cmdLiteralWithoutIndexing)
	}
}

func (c *Context) decodeLiteral(buf *Buffer, first byte, prefixBits int, kind cmdKind) (*command, error) {
	nameIdx, err := readPrefixedInt(buf, first, prefixBits)
	if err != nil {
		return nil, err
	}
	cmd := &command{kind: kind, index: nameIdx}
	if nameIdx == 0 {
		name, err := readString(buf, c.huffDec)
		if err != nil {
			return nil, err
		}
		cmd.name = name
	}
	value, err := readString(buf, c.huffDec)
	if err != nil {
		return nil, err
	}
	cmd.value = value
	return cmd, nil
}

// resolveLiteral resolves a literal command's header field: the name
// either follows inline (index 0) or is looked up in the combined index
// space (name only; the resolved value is ignored).
func (c *Context) resolveLiteral(cmd *command) (HeaderField, error) {
	if cmd.index == 0 {
		return HeaderField{Name: cmd.name, Value: cmd.value}, nil
	}
	base, _, _, err := c.resolve(cmd.index)
	if err != nil {
		return HeaderField{}, err
	}
	return HeaderField{Name: base.Name, Value: cmd.value}, nil
}

// process applies cmd's effect to the dynamic table and reference set,
// per the five patterns in spec.md §4.2 "Command processing":
//
//   - evicted reports header fields that left the dynamic table (or, for
//     a reset/index-0-indexed command, left the reference set) as a
//     result of this command.
//   - transient is non-nil only for literal-without-indexing and
//     literal-never-indexed commands: a header that belongs to the
//     current block's output but is never added to the reference set.
func (c *Context) process(cmd *command) (evicted []HeaderField, transient *HeaderField, err error) {
	switch cmd.kind {
	case cmdContextReset:
		out := make([]HeaderField, 0, len(c.refSet))
		for _, e := range c.refSet {
			out = append(out, e.field)
		}
		c.refSet = nil
		return out, nil, nil

	case cmdContextNewMaxSize:
		if cmd.newMaxSize > c.settingsLimit {
			return nil, nil, newCompressionError(ErrCompressionError, "dynamic table size %d exceeds settings limit %d", cmd.newMaxSize, c.settingsLimit)
		}
		c.limit = cmd.newMaxSize
		return c.enforceSize(), nil, nil

	case cmdIndexed:
		if cmd.index == 0 {
			out := make([]HeaderField, 0, len(c.refSet))
			for _, e := range c.refSet {
				out = append(out, e.field)
			}
			c.refSet = nil
			return out, nil, nil
		}
		if e := c.refSetEntryAtIndex(cmd.index); e != nil {
			c.removeFromRefSet(e)
			return nil, nil, nil
		}
		field, entry, isStatic, err := c.resolve(cmd.index)
		if err != nil {
			return nil, nil, err
		}
		if isStatic {
			evicted := c.insert(field)
			if len(c.dynamic) > 0 {
				c.addToRefSet(c.dynamic[0])
			}
			return evicted, nil, nil
		}
		c.addToRefSet(entry)
		return nil, nil, nil

	case cmdLiteralIncremental:
		field, err := c.resolveLiteral(cmd)
		if err != nil {
			return nil, nil, err
		}
		evicted := c.insert(field)
		if len(c.dynamic) > 0 {
			c.addToRefSet(c.dynamic[0])
		}
		return evicted, nil, nil

	case cmdLiteralWithoutIndexing, cmdLiteralNeverIndexed:
		field, err := c.resolveLiteral(cmd)
		if err != nil {
			return nil, nil, err
		}
		return nil, &field, nil
	}
	return nil, nil, newCompressionError(ErrCompressionError, "unknown command kind %d", cmd.kind)
}

const maxCascadePasses = 16

func containsField(list []HeaderField, h HeaderField) bool {
	for _, f := range list {
		if f == h {
			return true
		}
	}
	return false
}

func (c *Context) bestCommand(h HeaderField) *command {
	exact, nameOnly := c.findMatch(h)
	if exact > 0 {
		return &command{kind: cmdIndexed, index: exact}
	}
	if nameOnly > 0 {
		return &command{kind: cmdLiteralIncremental, index: nameOnly, value: h.Value}
	}
	return &command{kind: cmdLiteralIncremental, index: 0, name: h.Name, value: h.Value}
}

// Encode runs the differential encoding algorithm of spec.md §4.2 against
// headers (after cookie/name preprocessing) and returns the wire bytes.
// Every emitted command is applied to c via process, so an encoder and a
// decoder sharing this algorithm stay in sync one command at a time.
func (c *Context) Encode(headers []HeaderField) ([]byte, error) {
	h := preprocess(headers)
	var cmds []*command

	snapshot := append([]*dynamicEntry(nil), c.refSet...)
	for _, e := range snapshot {
		if containsField(h, e.field) {
			continue
		}
		idx := c.positionOf(e)
		if idx <= 0 {
			continue
		}
		cmd := &command{kind: cmdIndexed, index: idx}
		if _, _, err := c.process(cmd); err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}

	remaining := make([]HeaderField, 0, len(h))
	for _, f := range h {
		if !c.refSetHasField(f) {
			remaining = append(remaining, f)
		}
	}

	for pass := 0; len(remaining) > 0; pass++ {
		if pass >= maxCascadePasses {
			return nil, newCompressionError(ErrCompressionError, "header table did not stabilize after %d passes", maxCascadePasses)
		}
		var next []HeaderField
		for _, f := range remaining {
			if c.refSetHasField(f) {
				continue
			}
			cmd := c.bestCommand(f)
			evicted, _, err := c.process(cmd)
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, cmd)
			for _, ev := range evicted {
				if containsField(h, ev) {
					next = append(next, ev)
				}
			}
		}
		remaining = next
	}

	buf := make([]byte, 0, 64)
	for _, cmd := range cmds {
		buf = append(buf, c.encodeCommand(cmd)...)
	}
	LogHPACK("encode", headerListSize(headers), len(buf))
	return buf, nil
}

func headerListSize(headers []HeaderField) int {
	n := 0
	for _, h := range headers {
		n += len(h.Name) + len(h.Value)
	}
	return n
}

// Decode runs data's commands through process in order and reconstructs
// the resulting header list: the reference set's final contents (headers
// carried over unchanged or newly activated) plus any transient headers
// emitted by literal-without-indexing/never-indexed commands, followed by
// cookie postprocessing.
func (c *Context) Decode(data []byte) ([]HeaderField, error) {
	buf := NewBuffer(data)
	var transient []HeaderField
	for buf.Len() > 0 {
		cmd, err := c.decodeCommand(buf)
		if err != nil {
			return nil, err
		}
		_, t, err := c.process(cmd)
		if err != nil {
			return nil, err
		}
		if t != nil {
			transient = append(transient, *t)
		}
	}
	out := make([]HeaderField, 0, len(c.refSet)+len(transient))
	for _, e := range c.refSet {
		out = append(out, e.field)
	}
	out = append(out, transient...)
	result := postprocess(out)
	LogHPACK("decode", len(data), headerListSize(result))
	return result, nil
}

// preprocess implements spec.md §4.2's header normalization: headers
// sharing a name (except set-cookie, which must remain distinct wire
// entries) are combined by joining values with NUL, then any resulting
// cookie header is split back out into one entry per crumb.
func preprocess(headers []HeaderField) []HeaderField {
	type group struct {
		name        string
		values      []string
		passthrough bool
	}
	var groups []*group
	index := make(map[string]int)

	for _, h := range headers {
		if h.Name == "set-cookie" {
			groups = append(groups, &group{name: h.Name, values: []string{h.Value}, passthrough: true})
			continue
		}
		if i, ok := index[h.Name]; ok {
			groups[i].values = append(groups[i].values, h.Value)
			continue
		}
		index[h.Name] = len(groups)
		groups = append(groups, &group{name: h.Name, values: []string{h.Value}})
	}

	combined := make([]HeaderField, 0, len(groups))
	for _, g := range groups {
		combined = append(combined, HeaderField{Name: g.name, Value: strings.Join(g.values, "\x00")})
	}

	out := make([]HeaderField, 0, len(combined))
	for _, h := range combined {
		if h.Name != "cookie" {
			out = append(out, h)
			continue
		}
		for _, crumb := range splitCookie(h.Value) {
			trimmed := strings.TrimSpace(crumb)
			if trimmed == "" {
				continue
			}
			out = append(out, HeaderField{Name: "cookie", Value: trimmed})
		}
	}
	return out
}

func splitCookie(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == ';' || r == ' ' || r == '\x00'
	})
}

// postprocess rejoins multiple decoded cookie crumbs into a single
// semicolon-delimited cookie header at the position of the first crumb,
// the inverse of preprocess's cookie splitting.
func postprocess(headers []HeaderField) []HeaderField {
	out := make([]HeaderField, 0, len(headers))
	var crumbs []string
	cookieAt := -1
	for _, h := range headers {
		if h.Name == "cookie" {
			crumbs = append(crumbs, h.Value)
			if cookieAt == -1 {
				cookieAt = len(out)
				out = append(out, HeaderField{Name: "cookie"})
			}
			continue
		}
		out = append(out, h)
	}
	if cookieAt != -1 {
		out[cookieAt].Value = strings.Join(crumbs, "; ")
	}
	return out
}
