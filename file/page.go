package file

import (
	"encoding/binary"
	"fmt"
)

// IntSize is the on-disk byte size of an integer value: a fixed 4-byte
// little-endian signed int32, regardless of host platform word size.
const IntSize = 4

// Page is a fixed-size mutable byte buffer, sized to the file manager's
// block size. It provides typed accessors into that buffer: integers are
// stored as 4-byte little-endian values, and byte strings are stored
// length-prefixed (a 4-byte length followed by the raw bytes). Strings are
// UTF-8 text stored as a byte string.
//
// Page is not safe for concurrent use; callers serialize access through the
// buffer holding it (see buffer.Buffer).
type Page struct {
	buf []byte
}

// NewPageWithSize allocates a zero-filled page of the given size.
func NewPageWithSize(size int) *Page {
	return &Page{buf: make([]byte, size)}
}

// NewPageWithSlice wraps an existing byte slice as a page, taking ownership
// of it. Used to turn an assembled log record into something Page's typed
// accessors can write into.
func NewPageWithSlice(buf []byte) *Page {
	return &Page{buf: buf}
}

func (p *Page) assertSize(offset, size int) {
	if offset < 0 || size < 0 || offset+size > len(p.buf) {
		panic(fmt.Sprintf("page: access out of bounds: offset %d length %d, page size %d", offset, size, len(p.buf)))
	}
}

// Contents returns the page's backing buffer.
func (p *Page) Contents() []byte {
	return p.buf
}

// SetInt writes a 4-byte little-endian integer at offset.
func (p *Page) SetInt(offset int, val int) {
	p.assertSize(offset, IntSize)
	binary.LittleEndian.PutUint32(p.buf[offset:], uint32(int32(val)))
}

// GetInt reads a 4-byte little-endian integer at offset.
func (p *Page) GetInt(offset int) int {
	p.assertSize(offset, IntSize)
	return int(int32(binary.LittleEndian.Uint32(p.buf[offset:])))
}

// SetBytes writes a length-prefixed byte string at offset: a 4-byte length
// followed by the raw bytes.
func (p *Page) SetBytes(offset int, data []byte) {
	p.assertSize(offset, MaxLength(len(data)))
	p.SetInt(offset, len(data))
	copy(p.buf[offset+IntSize:], data)
}

// GetBytes reads a length-prefixed byte string at offset.
func (p *Page) GetBytes(offset int) []byte {
	size := p.GetInt(offset)
	from := offset + IntSize
	p.assertSize(from, size)
	return p.buf[from : from+size]
}

// SetString writes v as a length-prefixed UTF-8 byte string at offset.
func (p *Page) SetString(offset int, v string) {
	p.SetBytes(offset, []byte(v))
}

// GetString reads a length-prefixed UTF-8 byte string at offset.
func (p *Page) GetString(offset int) string {
	return string(p.GetBytes(offset))
}

// MaxLength returns the number of bytes a string (or byte slice) of length
// strlen occupies once length-prefixed: the 4-byte length plus the payload.
func MaxLength(strlen int) int {
	return strlen + IntSize
}
