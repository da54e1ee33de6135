package dw2l

import (
	"math"

	"go.uber.org/zap"

	"github.com/dw2tools/dw2file/errors"
)

// Encode encodes l under the default policy. Warnings are discarded.
func Encode(l *Level) ([]byte, error) {
	b, _, err := Encoder{}.Encode(l)
	return b, err
}

// Encoder encodes level files.
type Encoder struct {
	// Policy holds the layout rules the output follows. Only Alignment
	// affects encoding; chunks are always written after the chunk table in
	// order.
	Policy Policy

	// Logger receives debug events for each chunk, and each warning. Nil
	// means no logging.
	Logger *zap.Logger
}

// Encode serializes l into a new byte slice.
//
// The chunk table is written after the header and any table padding. Each
// chunk follows in order, after its padding and enough zero bytes to reach
// the policy alignment. The trailer comes last. On success, the descriptors,
// the chunk table offset and the cached blocks of compressed payloads in l
// are updated to describe the result. On failure, no bytes are returned and
// l is not modified. Since Encode writes to l, concurrent calls on the same
// Level must be synchronized by the caller.
//
// warn is an errors.Errors of references between chunks that do not
// resolve.
func (e Encoder) Encode(l *Level) (b []byte, warn, err error) {
	if l == nil {
		return nil, nil, ErrNilLevel
	}
	if err := e.Policy.Validate(); err != nil {
		return nil, nil, err
	}
	policy := e.Policy.normalize()
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if !VersionSupported(l.version) {
		return nil, nil, ErrUnsupportedVersion(l.version)
	}

	var warns errors.Errors
	warns = append(warns, errors.List(l.Check())...)

	chunks := make([][]byte, len(l.payloads))
	var keep []func()
	for i, p := range l.payloads {
		var data []byte
		var err error
		if c, ok := p.(*Compressed); ok {
			var k func()
			if data, k, err = encodeCompressed(c); err == nil {
				keep = append(keep, k)
			}
		} else {
			data, err = encodePayload(p)
		}
		if err != nil {
			return nil, warns.Return(), e.chunkError(l, i, err)
		}
		if uint64(len(data)) > math.MaxUint32 {
			return nil, warns.Return(), e.chunkError(l, i, ErrTooLarge)
		}
		chunks[i] = data
	}

	if uint64(len(chunks)) > math.MaxUint32 {
		return nil, warns.Return(), FieldOverflowError{Field: "chunk count", Value: uint64(len(chunks)), Max: math.MaxUint32}
	}

	// Layout first; the output buffer is allocated once at its final size.
	pos := uint64(HeaderSize) + uint64(len(l.tablePad))
	tableOffset := pos
	pos += uint64(len(chunks)) * DescriptorSize
	descs := make([]Descriptor, len(chunks))
	for i, data := range chunks {
		pos = policy.align(pos + uint64(len(l.pads[i])))
		if pos > math.MaxUint32 {
			return nil, warns.Return(), ErrTooLarge
		}
		descs[i] = Descriptor{
			Kind:   l.payloads[i].Kind(),
			Offset: uint32(pos),
			Length: uint32(len(data)),
		}
		pos += uint64(len(data))
	}
	pos += uint64(len(l.trailer))
	if pos > math.MaxUint32 {
		return nil, warns.Return(), ErrTooLarge
	}

	// An empty table declared inside the header keeps its offset.
	headerOffset := uint32(tableOffset)
	if len(chunks) == 0 && len(l.tablePad) == 0 && l.tableInHeader {
		headerOffset = l.tableOffset
	}

	w := NewWriter(int(pos))
	if err := writeHeader(w, Header{
		Version:          l.version,
		ChunkCount:       uint32(len(chunks)),
		ChunkTableOffset: headerOffset,
	}); err != nil {
		return nil, warns.Return(), err
	}
	if err := w.WriteBytes(l.tablePad); err != nil {
		return nil, warns.Return(), err
	}
	for _, d := range descs {
		if err := writeDescriptor(w, d); err != nil {
			return nil, warns.Return(), err
		}
	}
	for i, data := range chunks {
		if err := w.WriteBytes(l.pads[i]); err != nil {
			return nil, warns.Return(), err
		}
		// The buffer is zeroed, so seeking forward writes the fill.
		if err := w.Seek(int(descs[i].Offset)); err != nil {
			return nil, warns.Return(), err
		}
		if err := w.WriteBytes(data); err != nil {
			return nil, warns.Return(), err
		}
		log.Debug("encoded chunk",
			zap.Int("index", i),
			zap.Stringer("kind", descs[i].Kind),
			zap.Uint32("offset", descs[i].Offset),
			zap.Uint32("length", descs[i].Length),
		)
	}
	if err := w.WriteBytes(l.trailer); err != nil {
		return nil, warns.Return(), err
	}

	l.descs = descs
	l.tableOffset = headerOffset
	l.tableInHeader = headerOffset < HeaderSize
	for _, k := range keep {
		k()
	}

	for _, warning := range warns {
		log.Warn("encode", zap.Error(warning))
	}
	return w.Bytes(), warns.Return(), nil
}

func (e Encoder) chunkError(l *Level, i int, err error) error {
	var kind Kind
	if p := l.payloads[i]; p != nil {
		kind = p.Kind()
	}
	return ChunkError{Index: i, Kind: kind, Offset: int(l.descs[i].Offset), Cause: err}
}

func writeHeader(w *Cursor, h Header) error {
	if err := w.WriteBytes([]byte(Magic)); err != nil {
		return err
	}
	if err := w.WriteU32(h.Version); err != nil {
		return err
	}
	if err := w.WriteU32(h.ChunkCount); err != nil {
		return err
	}
	return w.WriteU32(h.ChunkTableOffset)
}

func writeDescriptor(w *Cursor, d Descriptor) error {
	if err := w.WriteKind(d.Kind); err != nil {
		return err
	}
	if err := w.WriteU32(d.Offset); err != nil {
		return err
	}
	return w.WriteU32(d.Length)
}
