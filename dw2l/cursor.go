package dw2l

import (
	"bytes"
	"encoding/binary"
)

// order is the byte order of every multi-byte field in the format.
var order = binary.LittleEndian

// Cursor is a bounds-checked reader and writer over a fixed-size byte
// buffer. Every operation checks the range it touches before doing
// anything, so a failed operation never moves the position.
//
// A Cursor may be a window into a larger buffer, in which case base is the
// absolute offset of the window within that buffer. Errors always report
// absolute offsets.
type Cursor struct {
	buf  []byte
	pos  int
	base int
}

// NewCursor returns a Cursor positioned at the start of b. The cursor reads
// and writes b in place.
func NewCursor(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// NewWriter returns a Cursor over a zeroed buffer of exactly size bytes.
// Writes past size fail with OutOfBoundsError.
func NewWriter(size int) *Cursor {
	return &Cursor{buf: make([]byte, size)}
}

// Pos returns the current position, relative to the start of the window.
func (c *Cursor) Pos() int {
	return c.pos
}

// Base returns the absolute offset of the start of the window.
func (c *Cursor) Base() int {
	return c.base
}

// Len returns the size of the window.
func (c *Cursor) Len() int {
	return len(c.buf)
}

// Remaining returns the number of bytes between the position and the end of
// the window.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

// Bytes returns the underlying buffer of the window.
func (c *Cursor) Bytes() []byte {
	return c.buf
}

// check verifies that n bytes are available at the current position.
func (c *Cursor) check(n int) error {
	if n < 0 || n > len(c.buf)-c.pos {
		return OutOfBoundsError{Offset: c.base + c.pos, Size: n, Length: c.base + len(c.buf)}
	}
	return nil
}

// Seek moves the position to off, relative to the start of the window. off
// may equal the window length.
func (c *Cursor) Seek(off int) error {
	if off < 0 || off > len(c.buf) {
		return OutOfBoundsError{Offset: c.base + off, Size: 0, Length: c.base + len(c.buf)}
	}
	c.pos = off
	return nil
}

// Skip advances the position by n bytes.
func (c *Cursor) Skip(n int) error {
	if err := c.check(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

// Window returns a new Cursor over the n bytes at off, relative to the start
// of this window. The new cursor shares memory with c and starts at its own
// position 0. The position of c is unchanged.
func (c *Cursor) Window(off, n int) (*Cursor, error) {
	if off < 0 || n < 0 || off > len(c.buf) || n > len(c.buf)-off {
		return nil, OutOfBoundsError{Offset: c.base + off, Size: n, Length: c.base + len(c.buf)}
	}
	return &Cursor{buf: c.buf[off : off+n : off+n], base: c.base + off}, nil
}

////////////////////////////////////////////////////////////////

func (c *Cursor) ReadU8() (uint8, error) {
	if err := c.check(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *Cursor) ReadU16() (uint16, error) {
	if err := c.check(2); err != nil {
		return 0, err
	}
	v := order.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *Cursor) ReadU32() (uint32, error) {
	if err := c.check(4); err != nil {
		return 0, err
	}
	v := order.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

// ReadBytes returns a copy of the next n bytes.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.check(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, c.buf[c.pos:])
	c.pos += n
	return b, nil
}

// ReadFixedString reads an n-byte field and returns its content up to the
// first NUL byte.
func (c *Cursor) ReadFixedString(n int) (string, error) {
	if err := c.check(n); err != nil {
		return "", err
	}
	b := c.buf[c.pos : c.pos+n]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	c.pos += n
	return string(b), nil
}

// ReadKind reads a four-byte chunk kind code.
func (c *Cursor) ReadKind() (Kind, error) {
	v, err := c.ReadU32()
	return Kind(v), err
}

////////////////////////////////////////////////////////////////

func (c *Cursor) WriteU8(v uint8) error {
	if err := c.check(1); err != nil {
		return err
	}
	c.buf[c.pos] = v
	c.pos++
	return nil
}

func (c *Cursor) WriteU16(v uint16) error {
	if err := c.check(2); err != nil {
		return err
	}
	order.PutUint16(c.buf[c.pos:], v)
	c.pos += 2
	return nil
}

func (c *Cursor) WriteU32(v uint32) error {
	if err := c.check(4); err != nil {
		return err
	}
	order.PutUint32(c.buf[c.pos:], v)
	c.pos += 4
	return nil
}

func (c *Cursor) WriteBytes(b []byte) error {
	if err := c.check(len(b)); err != nil {
		return err
	}
	c.pos += copy(c.buf[c.pos:], b)
	return nil
}

// WriteFixedString writes s into an n-byte field, padding with NUL bytes.
// Strings longer than n are rejected.
func (c *Cursor) WriteFixedString(s string, n int) error {
	if len(s) > n {
		return FieldOverflowError{Field: "fixed string", Value: uint64(len(s)), Max: uint64(n)}
	}
	if err := c.check(n); err != nil {
		return err
	}
	field := c.buf[c.pos : c.pos+n]
	m := copy(field, s)
	for i := m; i < n; i++ {
		field[i] = 0
	}
	c.pos += n
	return nil
}

// WriteKind writes a four-byte chunk kind code.
func (c *Cursor) WriteKind(k Kind) error {
	return c.WriteU32(uint32(k))
}
