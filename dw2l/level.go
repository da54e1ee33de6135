package dw2l

import (
	"bytes"

	"github.com/dw2tools/dw2file/errors"
	"golang.org/x/crypto/blake2b"
)

// Level is the decoded content of a level file: the header fields, the chunk
// descriptors, and one payload per descriptor.
//
// Descriptors describe the file the Level was decoded from, or last encoded
// to. They are recomputed by the encoder and are not authoritative between
// mutations.
//
// A Level also keeps the bytes of the file that belong to no structure:
// padding before the chunk table, padding before each chunk, and a trailer
// after the last chunk. These are written back by the encoder.
type Level struct {
	version     uint32
	tableOffset uint32
	// tableInHeader is set for an empty chunk table whose offset points into
	// the header.
	tableInHeader bool
	tablePad      []byte
	descs         []Descriptor
	payloads      []Payload
	pads          [][]byte
	trailer       []byte
}

// NewLevel returns an empty Level of the current format version.
func NewLevel() *Level {
	return &Level{version: Version}
}

// Header returns the header fields of the Level. ChunkTableOffset is the
// offset from the last decode or encode.
func (l *Level) Header() Header {
	var h Header
	copy(h.Magic[:], Magic)
	h.Version = l.version
	h.ChunkCount = uint32(len(l.payloads))
	h.ChunkTableOffset = l.tableOffset
	return h
}

func (l *Level) Version() uint32 {
	return l.version
}

// SetVersion sets the format version written by the encoder. Returns
// ErrUnsupportedVersion if the version is not supported.
func (l *Level) SetVersion(v uint32) error {
	if !VersionSupported(v) {
		return ErrUnsupportedVersion(v)
	}
	l.version = v
	return nil
}

// Len returns the number of chunks.
func (l *Level) Len() int {
	return len(l.payloads)
}

func (l *Level) checkIndex(i int) error {
	if i < 0 || i >= len(l.payloads) {
		return IndexError{Index: i, Len: len(l.payloads)}
	}
	return nil
}

// Descriptor returns a copy of the descriptor of chunk i. Returns false if i
// is out of range.
func (l *Level) Descriptor(i int) (Descriptor, bool) {
	if l.checkIndex(i) != nil {
		return Descriptor{}, false
	}
	return l.descs[i], true
}

// Descriptors returns a copy of all descriptors.
func (l *Level) Descriptors() []Descriptor {
	return append([]Descriptor(nil), l.descs...)
}

// Payload returns the payload of chunk i, or nil if i is out of range.
func (l *Level) Payload(i int) Payload {
	if l.checkIndex(i) != nil {
		return nil
	}
	return l.payloads[i]
}

// SetPayload replaces the payload of chunk i.
func (l *Level) SetPayload(i int, p Payload) error {
	if err := l.checkIndex(i); err != nil {
		return err
	}
	if p == nil {
		return ErrNilPayload
	}
	l.payloads[i] = p
	l.descs[i].Kind = p.Kind()
	return nil
}

// Append adds p as a new last chunk and returns its index.
func (l *Level) Append(p Payload) (int, error) {
	if err := l.Insert(len(l.payloads), p); err != nil {
		return 0, err
	}
	return len(l.payloads) - 1, nil
}

// Insert adds p as chunk i, shifting later chunks up by one. References held
// by other payloads are not adjusted.
func (l *Level) Insert(i int, p Payload) error {
	if i < 0 || i > len(l.payloads) {
		return IndexError{Index: i, Len: len(l.payloads)}
	}
	if p == nil {
		return ErrNilPayload
	}
	l.payloads = append(l.payloads, nil)
	copy(l.payloads[i+1:], l.payloads[i:])
	l.payloads[i] = p

	l.descs = append(l.descs, Descriptor{})
	copy(l.descs[i+1:], l.descs[i:])
	l.descs[i] = Descriptor{Kind: p.Kind()}

	l.pads = append(l.pads, nil)
	copy(l.pads[i+1:], l.pads[i:])
	l.pads[i] = nil
	return nil
}

// Remove removes chunk i and returns its payload. References held by other
// payloads are not adjusted.
func (l *Level) Remove(i int) (Payload, error) {
	if err := l.checkIndex(i); err != nil {
		return nil, err
	}
	p := l.payloads[i]
	l.payloads = append(l.payloads[:i], l.payloads[i+1:]...)
	l.descs = append(l.descs[:i], l.descs[i+1:]...)
	l.pads = append(l.pads[:i], l.pads[i+1:]...)
	return p, nil
}

// Padding returns the bytes that precede chunk i, not counting alignment
// fill.
func (l *Level) Padding(i int) []byte {
	if l.checkIndex(i) != nil {
		return nil
	}
	return l.pads[i]
}

// SetPadding sets the bytes written before chunk i.
func (l *Level) SetPadding(i int, b []byte) error {
	if err := l.checkIndex(i); err != nil {
		return err
	}
	l.pads[i] = append([]byte(nil), b...)
	return nil
}

// TablePadding returns the bytes between the header and the chunk table.
func (l *Level) TablePadding() []byte {
	return l.tablePad
}

// SetTablePadding sets the bytes written between the header and the chunk
// table.
func (l *Level) SetTablePadding(b []byte) {
	l.tablePad = append([]byte(nil), b...)
}

// Trailer returns the bytes after the last chunk.
func (l *Level) Trailer() []byte {
	return l.trailer
}

// SetTrailer sets the bytes written after the last chunk.
func (l *Level) SetTrailer(b []byte) {
	l.trailer = append([]byte(nil), b...)
}

// Resolve returns the payload referred to by ref.
func (l *Level) Resolve(ref ChunkRef) (Payload, bool) {
	if !ref.Valid() || int(ref) >= len(l.payloads) {
		return nil, false
	}
	return l.payloads[ref], true
}

// resolveKind returns the kind of the chunk referred to by ref, looking
// through compression, or zero if ref does not resolve.
func (l *Level) resolveKind(ref ChunkRef) Kind {
	p, ok := l.Resolve(ref)
	if !ok {
		return 0
	}
	return innerKind(p)
}

// Check verifies the references between chunks. Layouts must refer to floor
// plans and entity tables, floors to layouts and a string table entry. Unset
// references are ignored. Returns an Errors of ReferenceError and EntryError
// values, or nil.
func (l *Level) Check() error {
	var errs errors.Errors
	for i, p := range l.payloads {
		if c, ok := p.(*Compressed); ok {
			p = c.Inner
		}
		switch p := p.(type) {
		case *Layout:
			for _, r := range p.refs() {
				errs = errs.Append(l.checkRef(i, r))
			}
		case *Floor:
			errs = errs.Append(l.checkName(i, p.Name))
			for _, ref := range p.Layouts {
				errs = errs.Append(l.checkRef(i, fieldRef{"layout", ref, KindLayout}))
			}
		}
	}
	return errs.Return()
}

func (l *Level) checkRef(i int, r fieldRef) error {
	if !r.ref.Valid() {
		return nil
	}
	if got := l.resolveKind(r.ref); got != r.want {
		return ReferenceError{Index: i, Field: r.field, Ref: r.ref, Want: r.want, Got: got}
	}
	return nil
}

func (l *Level) checkName(i int, name StringRef) error {
	if err := l.checkRef(i, fieldRef{"name", name.Table, KindStrings}); err != nil || !name.Table.Valid() {
		return err
	}
	p, _ := l.Resolve(name.Table)
	if c, ok := p.(*Compressed); ok {
		p = c.Inner
	}
	t, ok := p.(*StringTable)
	if !ok {
		// An opaque table holding the kind cannot be checked further.
		return nil
	}
	if int(name.Entry) >= len(t.Entries) {
		return EntryError{Index: i, Table: name.Table, Entry: name.Entry, Len: len(t.Entries)}
	}
	return nil
}

// Name returns the text of the name of a floor.
func (l *Level) Name(f *Floor) (string, bool) {
	p, ok := l.Resolve(f.Name.Table)
	if !ok {
		return "", false
	}
	if c, ok := p.(*Compressed); ok {
		p = c.Inner
	}
	t, ok := p.(*StringTable)
	if !ok {
		return "", false
	}
	s, err := t.Text(int(f.Name.Entry))
	if err != nil {
		return "", false
	}
	return s, true
}

////////////////////////////////////////////////////////////////

// DigestSize is the size of a chunk digest.
const DigestSize = blake2b.Size256

// Digest returns the BLAKE2b-256 hash of the serialized form of p. Payloads
// with equal digests encode to the same bytes.
func Digest(p Payload) ([DigestSize]byte, error) {
	b, err := encodePayload(p)
	if err != nil {
		return [DigestSize]byte{}, err
	}
	return blake2b.Sum256(b), nil
}

// Bytes returns the serialized form of p as the encoder writes it.
func Bytes(p Payload) ([]byte, error) {
	return encodePayload(p)
}

// isZero returns whether every byte of b is zero.
func isZero(b []byte) bool {
	return len(bytes.Trim(b, "\x00")) == 0
}
