package http2

import "sync"

// HeaderField is an ordered (name, value) header pair (spec.md §3). Names
// are expected to be ASCII lowercase by protocol convention; this package
// does not itself enforce case, mirroring the teacher's HPACK, which
// trusts its caller.
type HeaderField struct {
	Name  string
	Value string
}

// staticTable is the HPACK draft-03 static table (spec.md §9 explicitly
// selects draft-03's 61 entries over RFC 7541's final table). Index 0 is
// unused; entries are 1-based per spec.md §3.
//
// Grounded on the teacher's hpack.go staticTable — table contents are
// identical between draft-03 and RFC 7541 (only the surrounding protocol
// semantics differ), so the data is kept verbatim.
var staticTable = []HeaderField{
	{"", ""},
	{":authority", ""},
	{":method", "GET"},
	{":method", "POST"},
	{":path", "/"},
	{":path", "/index.html"},
	{":scheme", "http"},
	{":scheme", "https"},
	{":status", "200"},
	{":status", "204"},
	{":status", "206"},
	{":status", "304"},
	{":status", "400"},
	{":status", "404"},
	{":status", "500"},
	{"accept-charset", ""},
	{"accept-encoding", "gzip, deflate"},
	{"accept-language", ""},
	{"accept-ranges", ""},
	{"accept", ""},
	{"access-control-allow-origin", ""},
	{"age", ""},
	{"allow", ""},
	{"authorization", ""},
	{"cache-control", ""},
	{"content-disposition", ""},
	{"content-encoding", ""},
	{"content-language", ""},
	{"content-length", ""},
	{"content-location", ""},
	{"content-range", ""},
	{"content-type", ""},
	{"cookie", ""},
	{"date", ""},
	{"etag", ""},
	{"expect", ""},
	{"expires", ""},
	{"from", ""},
	{"host", ""},
	{"if-match", ""},
	{"if-modified-since", ""},
	{"if-none-match", ""},
	{"if-range", ""},
	{"if-unmodified-since", ""},
	{"last-modified", ""},
	{"link", ""},
	{"location", ""},
	{"max-forwards", ""},
	{"proxy-authenticate", ""},
	{"proxy-authorization", ""},
	{"range", ""},
	{"referer", ""},
	{"refresh", ""},
	{"retry-after", ""},
	{"server", ""},
	{"set-cookie", ""},
	{"strict-transport-security", ""},
	{"transfer-encoding", ""},
	{"user-agent", ""},
	{"vary", ""},
	{"via", ""},
	{"www-authenticate", ""},
}

const staticTableLength = 61

var (
	staticNameIndex  map[string]int
	staticExactIndex map[string]int
	staticInitOnce   sync.Once
)

func initStaticIndex() {
	staticNameIndex = make(map[string]int, len(staticTable))
	staticExactIndex = make(map[string]int, len(staticTable))
	for i := 1; i < len(staticTable); i++ {
		f := staticTable[i]
		if _, ok := staticNameIndex[f.Name]; !ok {
			staticNameIndex[f.Name] = i
		}
		staticExactIndex[f.Name+"\x00"+f.Value] = i
	}
}

func staticLookup() (byName, byExact map[string]int) {
	staticInitOnce.Do(initStaticIndex)
	return staticNameIndex, staticExactIndex
}

// dynamicEntry is one entry of a Context's dynamic table. Pointer identity
// is used as the indirection table for reference-set membership (spec.md
// §9 "Reference-set position renumbering") instead of manually shifting
// numeric positions on every insertion/eviction: an entry's combined-space
// index is always derived from its current slice position, computed on demand.
type dynamicEntry struct {
	field HeaderField
	size  int
}

func entrySize(f HeaderField) int {
	return len(f.Name) + len(f.Value) + 32
}

// Context is the per-direction HPACK encoding context (spec.md §4.2): a
// dynamic table, a reference set, and the two size limits whose invariant
// is limit <= settingsLimit.
type Context struct {
	dynamic     []*dynamicEntry // newest at index 0 (combined index = staticTableLength+i+1)
	dynamicSize int
	limit       int
	settingsLimit int

	refSet []*dynamicEntry // ordered; headers "active" in the current block

	huffEnc *huffmanEncoder
	huffDec *huffmanDecoder
}

// NewContext creates an encoding context with the given initial
// settings-limit; limit starts out equal to it.
func NewContext(settingsLimit int) *Context {
	return &Context{
		limit:         settingsLimit,
		settingsLimit: settingsLimit,
		huffEnc:       newHuffmanEncoder(),
		huffDec:       newHuffmanDecoder(),
	}
}

// Limit returns the current dynamic table size limit.
func (c *Context) Limit() int { return c.limit }

// SettingsLimit returns the cap advertised via SETTINGS_HEADER_TABLE_SIZE.
func (c *Context) SettingsLimit() int { return c.settingsLimit }

// Size returns the current sum of dynamic table entry sizes.
func (c *Context) Size() int { return c.dynamicSize }

// SetSettingsLimit updates the advertised cap. If the current limit now
// exceeds it, the limit is clamped down and size enforcement runs,
// preserving the limit <= settingsLimit invariant (spec.md §3).
func (c *Context) SetSettingsLimit(v int) []HeaderField {
	c.settingsLimit = v
	if c.limit > v {
		c.limit = v
		return c.enforceSize()
	}
	return nil
}

// positionOf returns e's combined-space wire index: the static range
// occupies fixed indices 1..staticTableLength, so dynamic entries are
// addressed starting right after it, at staticTableLength+position
// (position 1 = most recently inserted). Unlike the dynamic table itself,
// static indices never shift as the dynamic table grows or evicts.
func (c *Context) positionOf(e *dynamicEntry) int {
	for i, d := range c.dynamic {
		if d == e {
			return staticTableLength + i + 1
		}
	}
	return -1
}

// resolve looks up the combined index space: 1..staticTableLength
// addresses the static table; indices beyond that address the dynamic
// table, most-recently-inserted first (spec.md §3).
func (c *Context) resolve(index int) (field HeaderField, entry *dynamicEntry, isStatic bool, err error) {
	if index <= 0 {
		return HeaderField{}, nil, false, newCompressionError(ErrCompressionError, "index %d is invalid", index)
	}
	if index <= staticTableLength {
		return staticTable[index], nil, true, nil
	}
	pos := index - staticTableLength
	if pos >= 1 && pos <= len(c.dynamic) {
		e := c.dynamic[pos-1]
		return e.field, e, false, nil
	}
	return HeaderField{}, nil, false, newCompressionError(ErrCompressionError, "index %d out of range (static=%d, dynamic=%d)", index, staticTableLength, len(c.dynamic))
}

func (c *Context) removeFromRefSet(e *dynamicEntry) {
	for i, r := range c.refSet {
		if r == e {
			c.refSet = append(c.refSet[:i], c.refSet[i+1:]...)
			return
		}
	}
}

// addToRefSet appends e, keeping the reference set in the order its members
// became active. Decode relies on this: it walks commands in wire order,
// which is the original header order (spec.md §4.2 step 4 "serialize
// commands in original order"), and reads the reference set back out in
// that same order to reconstruct the decoded header list.
func (c *Context) addToRefSet(e *dynamicEntry) {
	c.refSet = append(c.refSet, e)
}

func (c *Context) refSetEntryAtIndex(index int) *dynamicEntry {
	for _, e := range c.refSet {
		if c.positionOf(e) == index {
			return e
		}
	}
	return nil
}

func (c *Context) refSetHasField(h HeaderField) bool {
	for _, e := range c.refSet {
		if e.field == h {
			return true
		}
	}
	return false
}

// evictOldest removes the highest-indexed (oldest) dynamic table entry and
// drops it from the reference set if present (spec.md §3 "Size enforcement").
func (c *Context) evictOldest() *dynamicEntry {
	n := len(c.dynamic)
	e := c.dynamic[n-1]
	c.dynamic = c.dynamic[:n-1]
	c.dynamicSize -= e.size
	c.removeFromRefSet(e)
	return e
}

// enforceSize evicts from the oldest end until dynamicSize <= limit,
// without regard to any single incoming entry (used after a table-size
// change; spec.md §4.2 "run size enforcement").
func (c *Context) enforceSize() []HeaderField {
	var evicted []HeaderField
	for c.dynamicSize > c.limit && len(c.dynamic) > 0 {
		evicted = append(evicted, c.evictOldest().field)
	}
	return evicted
}

// insert adds field to the dynamic table at the front, evicting from the
// oldest end as needed. If field alone exceeds limit, the entire table
// (and reference set) is cleared and nothing is inserted (spec.md §3).
func (c *Context) insert(field HeaderField) (evicted []HeaderField) {
	s := entrySize(field)
	if s > c.limit {
		return c.clearAll()
	}
	for c.dynamicSize+s > c.limit && len(c.dynamic) > 0 {
		evicted = append(evicted, c.evictOldest().field)
	}
	e := &dynamicEntry{field: field, size: s}
	c.dynamic = append([]*dynamicEntry{e}, c.dynamic...)
	c.dynamicSize += s
	return evicted
}

func (c *Context) clearAll() []HeaderField {
	out := make([]HeaderField, 0, len(c.dynamic))
	for _, e := range c.dynamic {
		out = append(out, e.field)
	}
	c.dynamic = nil
	c.dynamicSize = 0
	c.refSet = nil
	return out
}

// findMatch searches dynamic-then-static for an exact (name, value) match
// and, failing that, a name-only match, returning combined-space indices
// (0 means "no match"). Grounded on the teacher's findInDynamicTable plus
// its precomputed static maps, generalized to the combined index space.
func (c *Context) findMatch(field HeaderField) (exact, nameOnly int) {
	for i, e := range c.dynamic {
		if e.field.Name == field.Name {
			if nameOnly == 0 {
				nameOnly = staticTableLength + i + 1
			}
			if e.field.Value == field.Value {
				idx := staticTableLength + i + 1
				return idx, idx
			}
		}
	}
	byName, byExact := staticLookup()
	if idx, ok := byExact[field.Name+"\x00"+field.Value]; ok {
		return idx, idx
	}
	if nameOnly == 0 {
		if idx, ok := byName[field.Name]; ok {
			nameOnly = idx
		}
	}
	return 0, nameOnly
}
