package arsc

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// Offsets inside the package header, relative to the end of the 8-byte
// chunk header.
const (
	pkgIDOff          = 0
	pkgNameOff        = 4
	pkgNameLen        = 256
	pkgTypeStringsOff = 260
	pkgKeyStringsOff  = 268
	pkgMinHeaderTail  = 276
	pkgHeaderTail     = 280 // includes typeIdOffset
)

// Package is a PACKAGE chunk. Its type and key string pools are also listed
// in Children, at the position they occupy on the wire.
type Package struct {
	ID   uint32
	Name string

	// TypeStrings names the resource types ("drawable", "layout", ...).
	TypeStrings *StringPool
	// KeyStrings names the resource entries ("ic_launcher", ...).
	KeyStrings *StringPool

	Children []Chunk

	// header is the header tail with the pool offsets zeroed; they are
	// recomputed on encode.
	header []byte
}

// NewPackage builds a package whose only children are its two pools.
func NewPackage(id uint32, name string, typeStrings, keyStrings *StringPool) *Package {
	header := make([]byte, pkgHeaderTail)
	binary.LittleEndian.PutUint32(header[pkgIDOff:], id)
	units := utf16.Encode([]rune(name))
	if len(units) > pkgNameLen/2-1 {
		units = units[:pkgNameLen/2-1]
	}
	for i, u := range units {
		binary.LittleEndian.PutUint16(header[pkgNameOff+2*i:], u)
	}
	return &Package{
		ID:          id,
		Name:        string(utf16.Decode(units)),
		TypeStrings: typeStrings,
		KeyStrings:  keyStrings,
		Children: []Chunk{
			{Kind: KindStringPool, Pool: typeStrings},
			{Kind: KindStringPool, Pool: keyStrings},
		},
		header: header,
	}
}

// Chunks returns the children of the given kind in wire order.
func (p *Package) Chunks(kind Kind) []Chunk {
	var out []Chunk
	for _, c := range p.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func decodePackage(data []byte, h chunkHeader) (*Package, error) {
	if h.headerSize-chunkHeaderSize < pkgMinHeaderTail {
		return nil, malformed("package header size %d too small", h.headerSize)
	}
	header := cloneBytes(data[chunkHeaderSize:h.headerSize])
	le := binary.LittleEndian
	typeOff := int(le.Uint32(header[pkgTypeStringsOff:]))
	keyOff := int(le.Uint32(header[pkgKeyStringsOff:]))
	le.PutUint32(header[pkgTypeStringsOff:], 0)
	le.PutUint32(header[pkgKeyStringsOff:], 0)

	p := &Package{
		ID:     le.Uint32(header[pkgIDOff:]),
		Name:   decodeFixedUTF16(header[pkgNameOff : pkgNameOff+pkgNameLen]),
		header: header,
	}
	for off := h.headerSize; off < len(data); {
		ch, err := readHeader(data, off)
		if err != nil {
			return nil, fmt.Errorf("package %q: %w", p.Name, err)
		}
		c, err := decodeChunk(data[off:off+ch.size], ch)
		if err != nil {
			return nil, fmt.Errorf("package %q: %w", p.Name, err)
		}
		if c.Kind == KindStringPool {
			switch off {
			case typeOff:
				p.TypeStrings = c.Pool
			case keyOff:
				p.KeyStrings = c.Pool
			}
		}
		p.Children = append(p.Children, c)
		off += ch.size
	}
	if p.TypeStrings == nil {
		return nil, malformed("package %q: no type string pool at offset %d", p.Name, typeOff)
	}
	if p.KeyStrings == nil {
		return nil, malformed("package %q: no key string pool at offset %d", p.Name, keyOff)
	}
	return p, nil
}

func decodeFixedUTF16(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u := binary.LittleEndian.Uint16(b[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

func (p *Package) appendTo(buf []byte) ([]byte, error) {
	start := len(buf)
	hs := chunkHeaderSize + len(p.header)
	buf, err := appendHeader(buf, typePackage, hs)
	if err != nil {
		return nil, err
	}
	buf = append(buf, p.header...)
	var typeOff, keyOff int
	for _, c := range p.Children {
		rel := len(buf) - start
		if c.Kind == KindStringPool {
			if c.Pool == p.TypeStrings && typeOff == 0 {
				typeOff = rel
			}
			if c.Pool == p.KeyStrings && keyOff == 0 {
				keyOff = rel
			}
		}
		if buf, err = encodeChunk(buf, c); err != nil {
			return nil, fmt.Errorf("package %q: %w", p.Name, err)
		}
	}
	if typeOff == 0 || keyOff == 0 {
		return nil, fmt.Errorf("package %q: type or key string pool missing from children", p.Name)
	}
	tail := buf[start+chunkHeaderSize:]
	binary.LittleEndian.PutUint32(tail[pkgTypeStringsOff:], uint32(typeOff))
	binary.LittleEndian.PutUint32(tail[pkgKeyStringsOff:], uint32(keyOff))
	return patchSize(buf, start)
}
