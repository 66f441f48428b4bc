// Package arsc decodes and re-encodes the compiled Android resource table
// (resources.arsc) as a logical chunk model.
//
// The table is a tree of little-endian chunks, each starting with an 8-byte
// header (type u16, headerSize u16, size u32):
//
//	TABLE
//	  STRING_POOL          global value strings (file paths, literals)
//	  PACKAGE              one per resource package
//	    STRING_POOL        type names ("drawable", "string", ...)
//	    STRING_POOL        key names ("ic_launcher", ...)
//	    TYPE_SPEC / TYPE   entries, referencing the pools by index
//	    ...                library, overlayable and unknown chunks
//
// Decode turns bytes into a Table; Encode serializes the model again and
// recomputes every declared size and offset, so string values may change
// length freely. Chunks this package does not interpret are carried
// verbatim.
package arsc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Chunk type identifiers as they appear on the wire.
const (
	typeStringPool uint16 = 0x0001
	typeTable      uint16 = 0x0002
	typePackage    uint16 = 0x0200
	typeType       uint16 = 0x0201
	typeTypeSpec   uint16 = 0x0202
)

const chunkHeaderSize = 8

// ErrMalformed is wrapped by every decoding error caused by invalid input.
var ErrMalformed = errors.New("malformed resource table")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Kind tags the payload carried by a Chunk.
type Kind uint8

const (
	KindOther Kind = iota
	KindStringPool
	KindPackage
	KindTypeSpec
	KindType
)

func (k Kind) String() string {
	switch k {
	case KindOther:
		return "other"
	case KindStringPool:
		return "string-pool"
	case KindPackage:
		return "package"
	case KindTypeSpec:
		return "type-spec"
	case KindType:
		return "type"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func kindOf(t uint16) Kind {
	switch t {
	case typeStringPool:
		return KindStringPool
	case typePackage:
		return KindPackage
	case typeTypeSpec:
		return KindTypeSpec
	case typeType:
		return KindType
	}
	return KindOther
}

// Chunk is one child of the table or of a package. Exactly one payload is
// set and Kind says which: Pool for KindStringPool, Package for KindPackage,
// Raw for every other kind.
type Chunk struct {
	Kind    Kind
	Pool    *StringPool
	Package *Package
	Raw     *RawChunk
}

// RawChunk is a chunk whose content is kept as opaque bytes.
type RawChunk struct {
	// Type is the wire chunk type.
	Type uint16
	// Header holds the header bytes that follow the 8-byte chunk header.
	Header []byte
	// Body holds everything after the header.
	Body []byte
}

type chunkHeader struct {
	typ        uint16
	headerSize int
	size       int
}

// readHeader validates the chunk header at off against the bytes available.
func readHeader(data []byte, off int) (chunkHeader, error) {
	if len(data)-off < chunkHeaderSize {
		return chunkHeader{}, malformed("truncated chunk header at offset %d", off)
	}
	h := chunkHeader{
		typ:        binary.LittleEndian.Uint16(data[off:]),
		headerSize: int(binary.LittleEndian.Uint16(data[off+2:])),
		size:       int(binary.LittleEndian.Uint32(data[off+4:])),
	}
	if h.headerSize < chunkHeaderSize {
		return h, malformed("chunk 0x%04x at offset %d: header size %d below minimum", h.typ, off, h.headerSize)
	}
	if h.size < h.headerSize {
		return h, malformed("chunk 0x%04x at offset %d: size %d smaller than header %d", h.typ, off, h.size, h.headerSize)
	}
	if h.size > len(data)-off {
		return h, malformed("chunk 0x%04x at offset %d: declared size %d exceeds remaining %d bytes",
			h.typ, off, h.size, len(data)-off)
	}
	return h, nil
}

// decodeChunk decodes a chunk occupying exactly data.
func decodeChunk(data []byte, h chunkHeader) (Chunk, error) {
	switch k := kindOf(h.typ); k {
	case KindStringPool:
		p, err := decodeStringPool(data, h)
		if err != nil {
			return Chunk{}, err
		}
		return Chunk{Kind: k, Pool: p}, nil
	case KindPackage:
		p, err := decodePackage(data, h)
		if err != nil {
			return Chunk{}, err
		}
		return Chunk{Kind: k, Package: p}, nil
	case KindTypeSpec, KindType, KindOther:
		return Chunk{Kind: k, Raw: &RawChunk{
			Type:   h.typ,
			Header: cloneBytes(data[chunkHeaderSize:h.headerSize]),
			Body:   cloneBytes(data[h.headerSize:]),
		}}, nil
	default:
		return Chunk{}, malformed("unhandled chunk kind %s", k)
	}
}

// decodeChildren decodes consecutive chunks filling data[start:].
func decodeChildren(data []byte, start int) ([]Chunk, error) {
	var out []Chunk
	for off := start; off < len(data); {
		h, err := readHeader(data, off)
		if err != nil {
			return nil, err
		}
		c, err := decodeChunk(data[off:off+h.size], h)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		off += h.size
	}
	return out, nil
}

// encodeChunk appends the serialized chunk to buf.
func encodeChunk(buf []byte, c Chunk) ([]byte, error) {
	switch c.Kind {
	case KindStringPool:
		if c.Pool == nil {
			return nil, fmt.Errorf("encode %s chunk: nil pool", c.Kind)
		}
		return c.Pool.appendTo(buf)
	case KindPackage:
		if c.Package == nil {
			return nil, fmt.Errorf("encode %s chunk: nil package", c.Kind)
		}
		return c.Package.appendTo(buf)
	case KindTypeSpec, KindType, KindOther:
		if c.Raw == nil {
			return nil, fmt.Errorf("encode %s chunk: nil body", c.Kind)
		}
		return c.Raw.appendTo(buf)
	default:
		return nil, fmt.Errorf("encode: unknown chunk kind %s", c.Kind)
	}
}

func (r *RawChunk) appendTo(buf []byte) ([]byte, error) {
	hs := chunkHeaderSize + len(r.Header)
	start := len(buf)
	buf, err := appendHeader(buf, r.Type, hs)
	if err != nil {
		return nil, err
	}
	buf = append(buf, r.Header...)
	buf = append(buf, r.Body...)
	return patchSize(buf, start)
}

// appendHeader writes a chunk header with a zero size; patchSize fills it in
// once the chunk is complete.
func appendHeader(buf []byte, typ uint16, headerSize int) ([]byte, error) {
	if headerSize > 0xFFFF {
		return nil, fmt.Errorf("chunk 0x%04x: header size %d does not fit in 16 bits", typ, headerSize)
	}
	buf = binary.LittleEndian.AppendUint16(buf, typ)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(headerSize))
	return binary.LittleEndian.AppendUint32(buf, 0), nil
}

func patchSize(buf []byte, start int) ([]byte, error) {
	size := len(buf) - start
	if uint64(size) > 0xFFFFFFFF {
		return nil, fmt.Errorf("chunk at %d: size %d does not fit in 32 bits", start, size)
	}
	binary.LittleEndian.PutUint32(buf[start+4:], uint32(size))
	return buf, nil
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
