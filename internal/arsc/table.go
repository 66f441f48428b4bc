package arsc

import (
	"encoding/binary"
	"fmt"
)

const tableHeaderSize = 12

// Table is a decoded resources.arsc file.
type Table struct {
	// PackageCount is the declared package count from the table header.
	PackageCount uint32
	// Children are the top-level chunks in wire order: normally the global
	// string pool followed by the packages.
	Children []Chunk

	extra []byte
}

// NewTable builds a table holding pool followed by pkgs.
func NewTable(pool *StringPool, pkgs ...*Package) *Table {
	t := &Table{PackageCount: uint32(len(pkgs))}
	t.Children = append(t.Children, Chunk{Kind: KindStringPool, Pool: pool})
	for _, p := range pkgs {
		t.Children = append(t.Children, Chunk{Kind: KindPackage, Package: p})
	}
	return t
}

// Decode parses a complete resource table.
func Decode(data []byte) (*Table, error) {
	h, err := readHeader(data, 0)
	if err != nil {
		return nil, err
	}
	if h.typ != typeTable {
		return nil, malformed("root chunk type 0x%04x is not a table", h.typ)
	}
	if h.size != len(data) {
		return nil, malformed("table declares %d bytes, file has %d", h.size, len(data))
	}
	if h.headerSize < tableHeaderSize {
		return nil, malformed("table header size %d below %d", h.headerSize, tableHeaderSize)
	}
	children, err := decodeChildren(data, h.headerSize)
	if err != nil {
		return nil, err
	}
	return &Table{
		PackageCount: binary.LittleEndian.Uint32(data[chunkHeaderSize:]),
		Children:     children,
		extra:        cloneBytes(data[tableHeaderSize:h.headerSize]),
	}, nil
}

// Encode serializes the table, recomputing every chunk size and offset.
func Encode(t *Table) ([]byte, error) {
	buf := make([]byte, 0, 64*1024)
	buf, err := appendHeader(buf, typeTable, tableHeaderSize+len(t.extra))
	if err != nil {
		return nil, err
	}
	buf = binary.LittleEndian.AppendUint32(buf, t.PackageCount)
	buf = append(buf, t.extra...)
	for i, c := range t.Children {
		if buf, err = encodeChunk(buf, c); err != nil {
			return nil, fmt.Errorf("table child %d: %w", i, err)
		}
	}
	return patchSize(buf, 0)
}

// StringPool returns the global value string pool, or nil if the table has
// none.
func (t *Table) StringPool() *StringPool {
	for _, c := range t.Children {
		if c.Kind == KindStringPool {
			return c.Pool
		}
	}
	return nil
}

// Packages returns the package chunks in wire order.
func (t *Table) Packages() []*Package {
	var out []*Package
	for _, c := range t.Children {
		if c.Kind == KindPackage {
			out = append(out, c.Package)
		}
	}
	return out
}

// Chunks returns every chunk of the given kind, descending into packages.
func (t *Table) Chunks(kind Kind) []Chunk {
	var out []Chunk
	for _, c := range t.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
		if c.Kind == KindPackage {
			out = append(out, c.Package.Chunks(kind)...)
		}
	}
	return out
}
