package arsc

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Res_value data types used by this package.
const (
	TypeReference uint8 = 0x01
	TypeString    uint8 = 0x03
	TypeIntDec    uint8 = 0x10
)

// Type chunk flags and entry flags.
const (
	typeFlagSparse   = 0x01
	typeFlagOffset16 = 0x02

	entryFlagComplex = 0x0001
	entryFlagCompact = 0x0008
)

const (
	typeHeaderTail = 12 // id, flags, reserved, entryCount, entriesStart
	configSize     = 64
	noEntry16      = 0xFFFF
)

// Value is a single typed value found in a TYPE chunk. For complex (bag)
// entries every map item yields one Value sharing the entry's Key.
type Value struct {
	Key  uint32
	Type uint8
	Data uint32
}

// NewTypeChunk builds a dense TYPE chunk holding one simple entry per value,
// with a default configuration.
func NewTypeChunk(typeID uint8, values []Value) *RawChunk {
	le := binary.LittleEndian
	header := make([]byte, typeHeaderTail+configSize)
	header[0] = typeID
	le.PutUint32(header[4:], uint32(len(values)))
	hs := chunkHeaderSize + len(header)
	le.PutUint32(header[8:], uint32(hs+4*len(values)))
	le.PutUint32(header[typeHeaderTail:], configSize)

	var body []byte
	for i := range values {
		body = le.AppendUint32(body, uint32(16*i))
	}
	for _, v := range values {
		body = le.AppendUint16(body, 8)
		body = le.AppendUint16(body, 0)
		body = le.AppendUint32(body, v.Key)
		body = le.AppendUint16(body, 8)
		body = append(body, 0, v.Type)
		body = le.AppendUint32(body, v.Data)
	}
	return &RawChunk{Type: typeType, Header: header, Body: body}
}

// TypeValues lists the values stored in a TYPE chunk, in entry order.
func TypeValues(r *RawChunk) ([]Value, error) {
	if r.Type != typeType {
		return nil, fmt.Errorf("chunk 0x%04x is not a type chunk", r.Type)
	}
	if len(r.Header) < typeHeaderTail {
		return nil, malformed("type chunk header of %d bytes too small", len(r.Header))
	}
	le := binary.LittleEndian
	flags := r.Header[1]
	count := int(le.Uint32(r.Header[4:]))
	hs := chunkHeaderSize + len(r.Header)
	entriesStart := int(le.Uint32(r.Header[8:])) - hs
	if entriesStart < 0 || entriesStart > len(r.Body) {
		return nil, malformed("type %d: entries start outside chunk", r.Header[0])
	}

	offsets, err := entryOffsets(r.Body, flags, count)
	if err != nil {
		return nil, fmt.Errorf("type %d: %w", r.Header[0], err)
	}
	entries := r.Body[entriesStart:]
	var out []Value
	for _, off := range offsets {
		vs, err := entryValues(entries, off)
		if err != nil {
			return nil, fmt.Errorf("type %d: %w", r.Header[0], err)
		}
		out = append(out, vs...)
	}
	return out, nil
}

// entryOffsets returns the offsets of present entries relative to the
// entries start.
func entryOffsets(body []byte, flags uint8, count int) ([]int, error) {
	le := binary.LittleEndian
	var out []int
	switch {
	case flags&typeFlagSparse != 0:
		if 4*count > len(body) {
			return nil, malformed("sparse entry table overruns chunk")
		}
		for i := 0; i < count; i++ {
			out = append(out, 4*int(le.Uint16(body[4*i+2:])))
		}
	case flags&typeFlagOffset16 != 0:
		if 2*count > len(body) {
			return nil, malformed("offset16 entry table overruns chunk")
		}
		for i := 0; i < count; i++ {
			if v := le.Uint16(body[2*i:]); v != noEntry16 {
				out = append(out, 4*int(v))
			}
		}
	default:
		if 4*count > len(body) {
			return nil, malformed("entry table overruns chunk")
		}
		for i := 0; i < count; i++ {
			if v := le.Uint32(body[4*i:]); v != math.MaxUint32 {
				out = append(out, int(v))
			}
		}
	}
	return out, nil
}

func entryValues(entries []byte, off int) ([]Value, error) {
	le := binary.LittleEndian
	if off < 0 || off+8 > len(entries) {
		return nil, malformed("entry at %d overruns chunk", off)
	}
	size := int(le.Uint16(entries[off:]))
	flags := le.Uint16(entries[off+2:])
	if flags&entryFlagCompact != 0 {
		return []Value{{
			Key:  uint32(size),
			Type: uint8(flags >> 8),
			Data: le.Uint32(entries[off+4:]),
		}}, nil
	}
	key := le.Uint32(entries[off+4:])
	if flags&entryFlagComplex != 0 {
		if off+16 > len(entries) {
			return nil, malformed("complex entry at %d overruns chunk", off)
		}
		n := int(le.Uint32(entries[off+12:]))
		pos := off + size
		if n < 0 || pos+12*n > len(entries) {
			return nil, malformed("complex entry at %d declares %d items beyond chunk", off, n)
		}
		out := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			item := entries[pos+12*i:]
			out = append(out, Value{Key: key, Type: item[7], Data: le.Uint32(item[8:])})
		}
		return out, nil
	}
	pos := off + size
	if pos+8 > len(entries) {
		return nil, malformed("entry value at %d overruns chunk", pos)
	}
	return []Value{{Key: key, Type: entries[pos+3], Data: le.Uint32(entries[pos+4:])}}, nil
}

// StringRefs counts, per global string pool index, how many typed values
// refer to it.
func (t *Table) StringRefs() (map[uint32]int, error) {
	refs := make(map[uint32]int)
	for _, c := range t.Chunks(KindType) {
		vs, err := TypeValues(c.Raw)
		if err != nil {
			return nil, err
		}
		for _, v := range vs {
			if v.Type == TypeString {
				refs[v.Data]++
			}
		}
	}
	return refs, nil
}
