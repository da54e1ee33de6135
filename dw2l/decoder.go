package dw2l

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dw2tools/dw2file/errors"
)

// Decode decodes a level file under the default policy. Warnings are
// discarded.
func Decode(b []byte) (*Level, error) {
	l, _, err := Decoder{}.Decode(b)
	return l, err
}

// Decoder decodes level files.
type Decoder struct {
	// Policy holds the layout rules the file must follow.
	Policy Policy

	// Logger receives debug events for each chunk, and each warning. Nil
	// means no logging.
	Logger *zap.Logger
}

// Decode decodes b into a Level. b is not retained; every payload owns a
// copy of its bytes.
//
// The first error aborts the whole decode, and no Level is returned. warn
// is an errors.Errors of conditions that did not prevent decoding: chunks of
// unknown kinds, non-zero padding, misaligned chunks under OverlapAllow, and
// references between chunks that do not resolve.
func (d Decoder) Decode(b []byte) (l *Level, warn, err error) {
	if err := d.Policy.Validate(); err != nil {
		return nil, nil, err
	}
	policy := d.Policy.normalize()
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var warns errors.Errors
	c := NewCursor(b)

	h, err := readHeader(c)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("read header",
		zap.Uint32("version", h.Version),
		zap.Uint32("chunks", h.ChunkCount),
		zap.Uint32("table", h.ChunkTableOffset),
	)

	descs, err := readChunkTable(c, h)
	if err != nil {
		return nil, nil, err
	}

	lay, ws, err := planLayout(b, h, descs, policy)
	warns = append(warns, ws...)
	if err != nil {
		return nil, warns.Return(), err
	}

	payloads := make([]Payload, len(descs))
	for i, desc := range descs {
		p, err := decodeChunk(c, i, desc, policy)
		if err != nil {
			return nil, warns.Return(), err
		}
		payloads[i] = p
		if isOpaque(p) {
			warns = append(warns, ChunkError{Index: i, Kind: desc.Kind, Offset: int(desc.Offset), Cause: ErrUnknownKind})
		}
		log.Debug("decoded chunk",
			zap.Int("index", i),
			zap.Stringer("kind", desc.Kind),
			zap.Uint32("offset", desc.Offset),
			zap.Uint32("length", desc.Length),
		)
	}

	l = &Level{
		version:       h.Version,
		tableOffset:   h.ChunkTableOffset,
		tableInHeader: h.ChunkTableOffset < HeaderSize,
		tablePad:      lay.tablePad,
		descs:         descs,
		payloads:      payloads,
		pads:          lay.pads,
		trailer:       lay.trailer,
	}
	warns = append(warns, errors.List(l.Check())...)

	for _, w := range warns {
		log.Warn("decode", zap.Error(w))
	}
	return l, warns.Return(), nil
}

////////////////////////////////////////////////////////////////

// readHeader reads the file header from the start of c.
func readHeader(c *Cursor) (h Header, err error) {
	if err = c.Seek(0); err != nil {
		return h, err
	}
	magic, err := c.ReadBytes(len(h.Magic))
	if err != nil {
		return h, err
	}
	copy(h.Magic[:], magic)
	if string(h.Magic[:]) != Magic {
		return h, ErrInvalidMagic(h.Magic)
	}
	if h.Version, err = c.ReadU32(); err != nil {
		return h, err
	}
	if !VersionSupported(h.Version) {
		return h, ErrUnsupportedVersion(h.Version)
	}
	if h.ChunkCount, err = c.ReadU32(); err != nil {
		return h, err
	}
	if h.ChunkTableOffset, err = c.ReadU32(); err != nil {
		return h, err
	}
	return h, nil
}

// readChunkTable reads the descriptors located by h. The size of the table
// is checked against the buffer before anything is allocated. A non-empty
// table must start after the header; an empty one may sit at any offset
// within the buffer.
func readChunkTable(c *Cursor, h Header) ([]Descriptor, error) {
	off := int64(h.ChunkTableOffset)
	size := int64(h.ChunkCount) * DescriptorSize
	length := int64(c.Len())
	if off > length || size > length-off {
		return nil, TruncatedChunkTableError{Offset: off, Count: h.ChunkCount, Length: c.Len()}
	}
	if off < HeaderSize && h.ChunkCount > 0 {
		return nil, ErrTableOverlapsHeader
	}
	if err := c.Seek(int(off)); err != nil {
		return nil, TruncatedChunkTableError{Offset: off, Count: h.ChunkCount, Length: c.Len()}
	}

	descs := make([]Descriptor, h.ChunkCount)
	for i := range descs {
		d, err := readDescriptor(c)
		if err != nil {
			return nil, TruncatedChunkTableError{Offset: off, Count: h.ChunkCount, Length: c.Len()}
		}
		if d.End() > uint64(c.Len()) {
			return nil, ChunkOutOfBoundsError{Index: i, Offset: d.Offset, Length: d.Length, BufferLength: c.Len()}
		}
		descs[i] = d
	}
	return descs, nil
}

func readDescriptor(c *Cursor) (d Descriptor, err error) {
	if d.Kind, err = c.ReadKind(); err != nil {
		return d, err
	}
	if d.Offset, err = c.ReadU32(); err != nil {
		return d, err
	}
	if d.Length, err = c.ReadU32(); err != nil {
		return d, err
	}
	return d, nil
}

// layout holds the bytes of a file that lie outside of the header, the
// chunk table, and the chunks.
type layout struct {
	tablePad []byte
	pads     [][]byte
	trailer  []byte
}

// planLayout checks the chunk ranges against the policy and extracts the
// bytes between them.
//
// Padding is only recoverable when the chunks follow the table in order. A
// padding that is exactly the zero fill the encoder would produce for the
// alignment is dropped and recomputed on encode.
func planLayout(b []byte, h Header, descs []Descriptor, policy Policy) (lay layout, warns errors.Errors, err error) {
	tableStart := uint64(h.ChunkTableOffset)
	tableEnd := tableStart + uint64(len(descs))*DescriptorSize

	sequential := tableStart >= HeaderSize
	boundary := tableEnd
	end := tableEnd
	if end < HeaderSize {
		end = HeaderSize
	}
	pads := make([][]byte, len(descs))
	for i, d := range descs {
		off := uint64(d.Offset)
		if off < boundary {
			if policy.strict() {
				return lay, warns, ChunkOverlapError{Index: i, Offset: int(off), Boundary: int(boundary)}
			}
			sequential = false
		}
		if !policy.aligned(off) {
			err := MisalignedChunkError{Index: i, Offset: int(off), Alignment: policy.Alignment}
			if policy.strict() {
				return lay, warns, err
			}
			warns = append(warns, err)
		}
		if sequential {
			pad := b[boundary:off]
			if isZero(pad) && uint64(len(pad)) == policy.align(boundary)-boundary {
				pad = nil
			} else if !isZero(pad) {
				warns = append(warns, ChunkError{Index: i, Kind: d.Kind, Offset: int(off), Cause: ErrNonZeroPadding})
			}
			pads[i] = clone(pad)
			boundary = d.End()
		}
		if d.End() > end {
			end = d.End()
		}
	}

	if sequential {
		lay.tablePad = clone(b[HeaderSize:tableStart])
		if !isZero(lay.tablePad) {
			warns = append(warns, fmt.Errorf("chunk table padding: %w", ErrNonZeroPadding))
		}
		lay.pads = pads
	} else {
		lay.pads = make([][]byte, len(descs))
	}
	lay.trailer = clone(b[end:])
	return lay, warns, nil
}

// isOpaque returns whether p holds content that was not decoded.
func isOpaque(p Payload) bool {
	if c, ok := p.(*Compressed); ok {
		p = c.Inner
	}
	_, ok := p.(*Opaque)
	return ok
}

// clone returns a copy of b, or nil if b is empty.
func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

// decodeChunk decodes the payload of descriptor d within a window covering
// exactly its range. Chunks of unknown kinds are copied into an Opaque.
func decodeChunk(c *Cursor, i int, d Descriptor, policy Policy) (Payload, error) {
	w, err := c.Window(int(d.Offset), int(d.Length))
	if err != nil {
		return nil, ChunkOutOfBoundsError{Index: i, Offset: d.Offset, Length: d.Length, BufferLength: c.Len()}
	}

	decode := payloadDecoders(d.Kind)
	if decode == nil {
		b, err := w.ReadBytes(w.Len())
		if err != nil {
			return nil, ChunkError{Index: i, Kind: d.Kind, Offset: int(d.Offset), Cause: err}
		}
		return &Opaque{Tag: d.Kind, Bytes: b}, nil
	}

	p, err := decode(w, chunkContext{index: i, policy: policy})
	if err != nil {
		var mismatch ChunkLengthMismatchError
		if errors.As(err, &mismatch) {
			return nil, err
		}
		return nil, ChunkError{Index: i, Kind: d.Kind, Offset: int(d.Offset), Cause: err}
	}
	if w.Pos() != w.Len() {
		return nil, ChunkLengthMismatchError{Index: i, Expected: w.Len(), Consumed: w.Pos()}
	}
	return p, nil
}
