package dw2l

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/anaminus/parse"
	"github.com/bkaradzic/go-lz4"

	"github.com/dw2tools/dw2file/charset"
)

// payloadDecoder decodes the payload of one chunk from a window that covers
// exactly the chunk. It need not consume the whole window; the caller checks
// the consumed length.
type payloadDecoder func(c *Cursor, ctx chunkContext) (Payload, error)

// chunkContext carries what a payload decoder may need besides its bytes.
type chunkContext struct {
	index  int
	policy Policy
}

// payloadDecoders returns the decoder for chunks of kind k, or nil if the
// kind is not decoded.
func payloadDecoders(k Kind) payloadDecoder {
	switch k {
	case KindGeometry:
		return decodeGeometry
	case KindEntities:
		return decodeEntities
	case KindStrings:
		return decodeStrings
	case KindLayout:
		return decodeLayout
	case KindFloor:
		return decodeFloor
	case KindCompressed:
		return decodeCompressed
	default:
		return nil
	}
}

// encodePayload serializes p to a new byte slice.
func encodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, ErrNilPayload
	}
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

////////////////////////////////////////////////////////////////

func decodeGeometry(c *Cursor, _ chunkContext) (Payload, error) {
	g := &Geometry{}
	var err error
	if g.Width, err = c.ReadU16(); err != nil {
		return nil, err
	}
	if g.Height, err = c.ReadU16(); err != nil {
		return nil, err
	}
	n := int(g.Width) * int(g.Height)
	if n > c.Remaining() {
		return nil, GeometrySizeError{Width: g.Width, Height: g.Height, Tiles: c.Remaining()}
	}
	if g.Tiles, err = c.ReadBytes(n); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Geometry) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)

	if len(g.Tiles) != int(g.Width)*int(g.Height) {
		fw.Add(0, GeometrySizeError{Width: g.Width, Height: g.Height, Tiles: len(g.Tiles)})
		return fw.End()
	}

	if fw.Number(g.Width) {
		return fw.End()
	}
	if fw.Number(g.Height) {
		return fw.End()
	}

	fw.Bytes(g.Tiles)

	return fw.End()
}

////////////////////////////////////////////////////////////////

func decodeEntities(c *Cursor, _ chunkContext) (Payload, error) {
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	// The count must account for every byte of the chunk.
	if uint64(count)*entitySize != uint64(c.Remaining()) {
		return nil, EntityCountError{Count: count, Length: c.Len()}
	}

	t := &EntityTable{Entities: make([]Entity, count)}
	for i := range t.Entities {
		e := &t.Entities[i]
		var class uint8
		if class, err = c.ReadU8(); err != nil {
			return nil, err
		}
		e.Class = EntityClass(class)
		if e.X, err = c.ReadU8(); err != nil {
			return nil, err
		}
		if e.Y, err = c.ReadU8(); err != nil {
			return nil, err
		}
		if e.Flags, err = c.ReadU8(); err != nil {
			return nil, err
		}
		if e.ID, err = c.ReadU16(); err != nil {
			return nil, err
		}
		if e.Param, err = c.ReadU16(); err != nil {
			return nil, err
		}
		if e.Extra, err = c.ReadU32(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *EntityTable) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)

	if uint64(len(t.Entities)) > math.MaxUint32 {
		fw.Add(0, FieldOverflowError{Field: "entity count", Value: uint64(len(t.Entities)), Max: math.MaxUint32})
		return fw.End()
	}
	if fw.Number(uint32(len(t.Entities))) {
		return fw.End()
	}

	for _, e := range t.Entities {
		if fw.Number(uint8(e.Class)) {
			return fw.End()
		}
		if fw.Number(e.X) {
			return fw.End()
		}
		if fw.Number(e.Y) {
			return fw.End()
		}
		if fw.Number(e.Flags) {
			return fw.End()
		}
		if fw.Number(e.ID) {
			return fw.End()
		}
		if fw.Number(e.Param) {
			return fw.End()
		}
		if fw.Number(e.Extra) {
			return fw.End()
		}
	}

	return fw.End()
}

////////////////////////////////////////////////////////////////

func decodeStrings(c *Cursor, _ chunkContext) (Payload, error) {
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	// Every entry takes at least its terminator.
	if uint64(count) > uint64(c.Remaining()) {
		return nil, StringCountError{Count: count, Available: c.Remaining()}
	}

	t := &StringTable{Entries: make([][]byte, count)}
	for i := range t.Entries {
		n, terminated := charset.Span(c.Bytes()[c.Pos():])
		if !terminated {
			return nil, UnterminatedStringError{Entry: i}
		}
		if t.Entries[i], err = c.ReadBytes(n); err != nil {
			return nil, err
		}
		if err = c.Skip(1); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *StringTable) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)

	if uint64(len(t.Entries)) > math.MaxUint32 {
		fw.Add(0, FieldOverflowError{Field: "string count", Value: uint64(len(t.Entries)), Max: math.MaxUint32})
		return fw.End()
	}
	if fw.Number(uint32(len(t.Entries))) {
		return fw.End()
	}

	for i, entry := range t.Entries {
		if !charset.Valid(entry) {
			fw.Add(0, UnterminatedStringError{Entry: i})
			return fw.End()
		}
		if fw.Bytes(entry) {
			return fw.End()
		}
		if fw.Number(uint8(charset.Terminator)) {
			return fw.End()
		}
	}

	return fw.End()
}

////////////////////////////////////////////////////////////////

func readRef(c *Cursor, r *ChunkRef) error {
	v, err := c.ReadU16()
	*r = ChunkRef(v)
	return err
}

func decodeLayout(c *Cursor, _ chunkContext) (Payload, error) {
	l := &Layout{}
	for _, r := range []*ChunkRef{&l.FloorPlan, &l.Warps, &l.Chests, &l.Traps, &l.Digimon} {
		if err := readRef(c, r); err != nil {
			return nil, err
		}
	}
	var err error
	if l.Reserved, err = c.ReadU16(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Layout) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)

	for _, r := range []ChunkRef{l.FloorPlan, l.Warps, l.Chests, l.Traps, l.Digimon} {
		if fw.Number(uint16(r)) {
			return fw.End()
		}
	}
	fw.Number(l.Reserved)

	return fw.End()
}

func decodeFloor(c *Cursor, _ chunkContext) (Payload, error) {
	f := &Floor{}
	if err := readRef(c, &f.Name.Table); err != nil {
		return nil, err
	}
	var err error
	if f.Name.Entry, err = c.ReadU16(); err != nil {
		return nil, err
	}
	for i := range f.Layouts {
		if err := readRef(c, &f.Layouts[i]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Floor) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)

	if fw.Number(uint16(f.Name.Table)) {
		return fw.End()
	}
	if fw.Number(f.Name.Entry) {
		return fw.End()
	}
	for _, r := range f.Layouts {
		if fw.Number(uint16(r)) {
			return fw.End()
		}
	}

	return fw.End()
}

////////////////////////////////////////////////////////////////

// decodeCompressed reads the inner kind and the LZ4 block that follows it.
// The block starts with the decompressed size, which is the framing go-lz4
// produces, so the block is passed to lz4 as is.
func decodeCompressed(c *Cursor, ctx chunkContext) (Payload, error) {
	inner, err := c.ReadKind()
	if err != nil {
		return nil, err
	}
	if inner == KindCompressed {
		return nil, ErrNestedCompression
	}
	size, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	if uint64(size) > uint64(ctx.policy.MaxDecompressedSize) {
		return nil, DecompressedSizeError{Declared: size, Limit: ctx.policy.MaxDecompressedSize}
	}
	if err = c.Seek(c.Pos() - 4); err != nil {
		return nil, err
	}
	packed, err := c.ReadBytes(c.Remaining())
	if err != nil {
		return nil, err
	}

	plain, err := lz4.Decode(nil, packed)
	if err != nil {
		return nil, DecompressError{Cause: err}
	}
	if len(plain) != int(size) {
		return nil, DecompressError{Cause: fmt.Errorf("decompressed %d bytes, expected %d", len(plain), size)}
	}

	payload := &Compressed{plain: plain, packed: packed}
	decode := payloadDecoders(inner)
	if decode == nil {
		payload.Inner = &Opaque{Tag: inner, Bytes: append([]byte(nil), plain...)}
		return payload, nil
	}
	ic := NewCursor(plain)
	if payload.Inner, err = decode(ic, ctx); err != nil {
		return nil, err
	}
	if ic.Pos() != len(plain) {
		return nil, ChunkLengthMismatchError{Index: ctx.index, Expected: len(plain), Consumed: ic.Pos()}
	}
	return payload, nil
}

// pack serializes the inner payload and returns it with its LZ4 block. The
// cached block is returned while the content is unchanged. c is not
// modified.
func (c *Compressed) pack() (plain, packed []byte, err error) {
	if c.Inner == nil {
		return nil, nil, ErrNilPayload
	}
	if c.Inner.Kind() == KindCompressed {
		return nil, nil, ErrNestedCompression
	}
	if plain, err = encodePayload(c.Inner); err != nil {
		return nil, nil, err
	}
	if c.packed != nil && bytes.Equal(plain, c.plain) {
		return plain, c.packed, nil
	}
	if packed, err = lz4.Encode(nil, plain); err != nil {
		return nil, nil, err
	}
	return plain, packed, nil
}

// encodeCompressed serializes c like encodePayload. Calling keep stores the
// new block in c.
func encodeCompressed(c *Compressed) (data []byte, keep func(), err error) {
	plain, packed, err := c.pack()
	if err != nil {
		return nil, nil, err
	}
	var buf bytes.Buffer
	if _, err := writeCompressed(&buf, c.Inner.Kind(), packed); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), func() { c.plain, c.packed = plain, packed }, nil
}

func writeCompressed(w io.Writer, inner Kind, packed []byte) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)

	if fw.Number(uint32(inner)) {
		return fw.End()
	}
	fw.Bytes(packed)

	return fw.End()
}

func (c *Compressed) WriteTo(w io.Writer) (n int64, err error) {
	_, packed, err := c.pack()
	if err != nil {
		return 0, err
	}
	return writeCompressed(w, c.Inner.Kind(), packed)
}

////////////////////////////////////////////////////////////////

func (o *Opaque) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)

	if payloadDecoders(o.Tag) != nil {
		fw.Add(0, ErrOpaqueKnownKind)
		return fw.End()
	}
	fw.Bytes(o.Bytes)

	return fw.End()
}
