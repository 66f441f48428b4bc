package arsc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"unicode/utf16"
)

// String pool flags.
const (
	SortedFlag uint32 = 1 << 0
	UTF8Flag   uint32 = 1 << 8
)

const (
	poolHeaderSize = 28
	spanEnd        = 0xFFFFFFFF
	maxUTF8Len     = 0x7FFF
	maxUTF16Len    = 0x7FFFFFFF
)

// Span is one styled range of a pool string.
type Span struct {
	Name      uint32
	FirstChar uint32
	LastChar  uint32
}

// StringPool is an index-addressed list of strings. Other chunks refer to
// its entries by position only, so Set never changes the length of the pool
// or the meaning of any other index.
type StringPool struct {
	Flags uint32
	// Styles holds the span list of the first len(Styles) strings.
	Styles [][]Span

	strings []string
	extra   []byte
	index   map[string][]int
	// verbatim holds the encoded form of decoded strings that would not
	// re-encode to the same bytes (lone surrogates, invalid utf-8).
	verbatim map[int][]byte
}

// NewStringPool builds a pool holding strs in order.
func NewStringPool(utf8 bool, strs ...string) *StringPool {
	p := &StringPool{strings: append([]string(nil), strs...)}
	if utf8 {
		p.Flags |= UTF8Flag
	}
	p.reindex()
	return p
}

// IsUTF8 reports whether strings are serialized as UTF-8.
func (p *StringPool) IsUTF8() bool { return p.Flags&UTF8Flag != 0 }

// Len returns the number of strings.
func (p *StringPool) Len() int { return len(p.strings) }

// Get returns the string at index i.
func (p *StringPool) Get(i int) (string, error) {
	if i < 0 || i >= len(p.strings) {
		return "", fmt.Errorf("string pool index %d out of range [0,%d)", i, len(p.strings))
	}
	return p.strings[i], nil
}

// Set replaces the string at index i. Setting a different value clears the
// sorted flag, since the pool may no longer be ordered.
func (p *StringPool) Set(i int, s string) error {
	old, err := p.Get(i)
	if err != nil {
		return err
	}
	if old == s {
		return nil
	}
	p.strings[i] = s
	delete(p.verbatim, i)
	p.unindex(old, i)
	p.addIndex(s, i)
	p.Flags &^= SortedFlag
	return nil
}

// IndexOf returns the lowest index holding s, or -1.
func (p *StringPool) IndexOf(s string) int {
	if idx := p.index[s]; len(idx) > 0 {
		return idx[0]
	}
	return -1
}

// IndicesOf returns every index holding s in ascending order.
func (p *StringPool) IndicesOf(s string) []int {
	return append([]int(nil), p.index[s]...)
}

// Strings returns a copy of the pool contents.
func (p *StringPool) Strings() []string {
	return append([]string(nil), p.strings...)
}

func (p *StringPool) reindex() {
	p.index = make(map[string][]int, len(p.strings))
	for i, s := range p.strings {
		p.index[s] = append(p.index[s], i)
	}
}

func (p *StringPool) unindex(s string, i int) {
	idx := p.index[s]
	j := sort.SearchInts(idx, i)
	if j == len(idx) || idx[j] != i {
		return
	}
	idx = append(idx[:j], idx[j+1:]...)
	if len(idx) == 0 {
		delete(p.index, s)
		return
	}
	p.index[s] = idx
}

func (p *StringPool) addIndex(s string, i int) {
	idx := p.index[s]
	j := sort.SearchInts(idx, i)
	idx = append(idx, 0)
	copy(idx[j+1:], idx[j:])
	idx[j] = i
	p.index[s] = idx
}

func decodeStringPool(data []byte, h chunkHeader) (*StringPool, error) {
	if h.headerSize < poolHeaderSize {
		return nil, malformed("string pool header size %d below %d", h.headerSize, poolHeaderSize)
	}
	le := binary.LittleEndian
	count := uint64(le.Uint32(data[8:]))
	styleCount := uint64(le.Uint32(data[12:]))
	p := &StringPool{
		Flags: le.Uint32(data[16:]),
		extra: cloneBytes(data[poolHeaderSize:h.headerSize]),
	}
	stringsStart := uint64(le.Uint32(data[20:]))
	stylesStart := uint64(le.Uint32(data[24:]))

	offsetsEnd := uint64(h.headerSize) + 4*(count+styleCount)
	if offsetsEnd > uint64(len(data)) {
		return nil, malformed("string pool offsets (%d strings, %d styles) exceed chunk size %d", count, styleCount, len(data))
	}
	if styleCount > count {
		return nil, malformed("string pool declares %d styles for %d strings", styleCount, count)
	}

	if count > 0 {
		end := uint64(len(data))
		if styleCount > 0 && stylesStart > stringsStart {
			end = stylesStart
		}
		if stringsStart < offsetsEnd || stringsStart > end || end > uint64(len(data)) {
			return nil, malformed("string data range [%d,%d) invalid for chunk size %d", stringsStart, end, len(data))
		}
		region := data[stringsStart:end]
		p.strings = make([]string, count)
		for i := uint64(0); i < count; i++ {
			off := le.Uint32(data[uint64(h.headerSize)+4*i:])
			s, raw, err := decodeString(region, int(off), p.IsUTF8())
			if err != nil {
				return nil, fmt.Errorf("string %d: %w", i, err)
			}
			p.strings[i] = s
			if enc, err := appendString(nil, s, p.IsUTF8()); err != nil || !bytes.Equal(enc[:len(enc)-terminatorLen(p.IsUTF8())], raw) {
				if p.verbatim == nil {
					p.verbatim = map[int][]byte{}
				}
				p.verbatim[int(i)] = cloneBytes(raw)
			}
		}
	}

	if styleCount > 0 {
		if stylesStart < offsetsEnd || stylesStart > uint64(len(data)) {
			return nil, malformed("style data offset %d invalid for chunk size %d", stylesStart, len(data))
		}
		region := data[stylesStart:]
		p.Styles = make([][]Span, styleCount)
		base := uint64(h.headerSize) + 4*count
		for i := uint64(0); i < styleCount; i++ {
			off := le.Uint32(data[base+4*i:])
			spans, err := decodeSpans(region, int(off))
			if err != nil {
				return nil, fmt.Errorf("style %d: %w", i, err)
			}
			p.Styles[i] = spans
		}
	}
	p.reindex()
	return p, nil
}

// decodeString returns the string at off and its encoded bytes up to, not
// including, the terminator.
func decodeString(region []byte, off int, utf8 bool) (string, []byte, error) {
	if off < 0 || off >= len(region) {
		return "", nil, malformed("string offset %d outside data of %d bytes", off, len(region))
	}
	start := off
	if utf8 {
		_, n, err := decodeLen8(region, off)
		if err != nil {
			return "", nil, err
		}
		off += n
		size, n, err := decodeLen8(region, off)
		if err != nil {
			return "", nil, err
		}
		off += n
		if off+size > len(region) {
			return "", nil, malformed("utf-8 string of %d bytes overruns data", size)
		}
		return string(region[off : off+size]), region[start : off+size], nil
	}
	units, n, err := decodeLen16(region, off)
	if err != nil {
		return "", nil, err
	}
	off += n
	if off+2*units > len(region) {
		return "", nil, malformed("utf-16 string of %d units overruns data", units)
	}
	u := make([]uint16, units)
	for i := range u {
		u[i] = binary.LittleEndian.Uint16(region[off+2*i:])
	}
	return string(utf16.Decode(u)), region[start : off+2*units], nil
}

func terminatorLen(utf8 bool) int {
	if utf8 {
		return 1
	}
	return 2
}

func decodeLen8(b []byte, off int) (int, int, error) {
	if off >= len(b) {
		return 0, 0, malformed("truncated utf-8 length at %d", off)
	}
	v := int(b[off])
	if v&0x80 == 0 {
		return v, 1, nil
	}
	if off+1 >= len(b) {
		return 0, 0, malformed("truncated utf-8 length at %d", off)
	}
	return (v&0x7F)<<8 | int(b[off+1]), 2, nil
}

func decodeLen16(b []byte, off int) (int, int, error) {
	if off+2 > len(b) {
		return 0, 0, malformed("truncated utf-16 length at %d", off)
	}
	v := int(binary.LittleEndian.Uint16(b[off:]))
	if v&0x8000 == 0 {
		return v, 2, nil
	}
	if off+4 > len(b) {
		return 0, 0, malformed("truncated utf-16 length at %d", off)
	}
	return (v&0x7FFF)<<16 | int(binary.LittleEndian.Uint16(b[off+2:])), 4, nil
}

func decodeSpans(region []byte, off int) ([]Span, error) {
	var spans []Span
	for {
		if off < 0 || off+4 > len(region) {
			return nil, malformed("unterminated style span list")
		}
		name := binary.LittleEndian.Uint32(region[off:])
		if name == spanEnd {
			return spans, nil
		}
		if off+12 > len(region) {
			return nil, malformed("truncated style span at %d", off)
		}
		spans = append(spans, Span{
			Name:      name,
			FirstChar: binary.LittleEndian.Uint32(region[off+4:]),
			LastChar:  binary.LittleEndian.Uint32(region[off+8:]),
		})
		off += 12
	}
}

func (p *StringPool) appendTo(buf []byte) ([]byte, error) {
	if len(p.Styles) > len(p.strings) {
		return nil, fmt.Errorf("string pool: %d styles for %d strings", len(p.Styles), len(p.strings))
	}
	var data []byte
	offsets := make([]uint32, 0, len(p.strings)+len(p.Styles))
	for i, s := range p.strings {
		offsets = append(offsets, uint32(len(data)))
		if raw, ok := p.verbatim[i]; ok {
			data = append(data, raw...)
			data = append(data, make([]byte, terminatorLen(p.IsUTF8()))...)
			continue
		}
		var err error
		if data, err = appendString(data, s, p.IsUTF8()); err != nil {
			return nil, fmt.Errorf("string pool entry %d: %w", i, err)
		}
	}
	data = pad4(data)

	var styles []byte
	for _, spans := range p.Styles {
		offsets = append(offsets, uint32(len(styles)))
		for _, sp := range spans {
			styles = binary.LittleEndian.AppendUint32(styles, sp.Name)
			styles = binary.LittleEndian.AppendUint32(styles, sp.FirstChar)
			styles = binary.LittleEndian.AppendUint32(styles, sp.LastChar)
		}
		styles = binary.LittleEndian.AppendUint32(styles, spanEnd)
	}
	if len(p.Styles) > 0 {
		styles = binary.LittleEndian.AppendUint32(styles, spanEnd)
		styles = binary.LittleEndian.AppendUint32(styles, spanEnd)
	}

	hs := poolHeaderSize + len(p.extra)
	dataStart := hs + 4*len(offsets)
	var stringsStart, stylesStart uint32
	if len(p.strings) > 0 {
		stringsStart = uint32(dataStart)
	}
	if len(p.Styles) > 0 {
		stylesStart = uint32(dataStart + len(data))
	}

	start := len(buf)
	buf, err := appendHeader(buf, typeStringPool, hs)
	if err != nil {
		return nil, err
	}
	le := binary.LittleEndian
	buf = le.AppendUint32(buf, uint32(len(p.strings)))
	buf = le.AppendUint32(buf, uint32(len(p.Styles)))
	buf = le.AppendUint32(buf, p.Flags)
	buf = le.AppendUint32(buf, stringsStart)
	buf = le.AppendUint32(buf, stylesStart)
	buf = append(buf, p.extra...)
	for _, o := range offsets {
		buf = le.AppendUint32(buf, o)
	}
	buf = append(buf, data...)
	buf = append(buf, styles...)
	return patchSize(buf, start)
}

func appendString(b []byte, s string, utf8 bool) ([]byte, error) {
	units := utf16.Encode([]rune(s))
	if utf8 {
		if len(units) > maxUTF8Len || len(s) > maxUTF8Len {
			return nil, fmt.Errorf("string of %d bytes too long for utf-8 pool", len(s))
		}
		b = appendLen8(b, len(units))
		b = appendLen8(b, len(s))
		b = append(b, s...)
		return append(b, 0), nil
	}
	if len(units) > maxUTF16Len {
		return nil, fmt.Errorf("string of %d units too long for utf-16 pool", len(units))
	}
	if n := len(units); n > 0x7FFF {
		b = binary.LittleEndian.AppendUint16(b, uint16(0x8000|n>>16))
		b = binary.LittleEndian.AppendUint16(b, uint16(n))
	} else {
		b = binary.LittleEndian.AppendUint16(b, uint16(n))
	}
	for _, u := range units {
		b = binary.LittleEndian.AppendUint16(b, u)
	}
	return binary.LittleEndian.AppendUint16(b, 0), nil
}

func appendLen8(b []byte, n int) []byte {
	if n > 0x7F {
		return append(b, byte(0x80|n>>8), byte(n))
	}
	return append(b, byte(n))
}

func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}
