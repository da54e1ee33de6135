package dw2l

import (
	"fmt"

	"github.com/dw2tools/dw2file/errors"
)

var (
	// Indicates a chunk kind not known by the codec. The chunk is preserved
	// as Opaque, so this is only ever reported as a warning.
	ErrUnknownKind = errors.New("unknown chunk kind")
	// Indicates a chunk table that starts inside the file header.
	ErrTableOverlapsHeader = errors.New("chunk table overlaps file header")
	// Indicates a compressed chunk whose inner kind is also compressed.
	ErrNestedCompression = errors.New("nested compressed chunk")
	// Indicates a chunk without a payload.
	ErrNilPayload = errors.New("nil payload")
	// Indicates a nil Level passed to the encoder.
	ErrNilLevel = errors.New("nil level")
	// Indicates an encoded file larger than 32-bit offsets can address.
	ErrTooLarge = errors.New("encoded file exceeds 4 GiB")
	// Indicates padding bytes that are not zero. Reported as a warning.
	ErrNonZeroPadding = errors.New("padding is non-zero")
	// Indicates an Opaque payload tagged with a kind the codec decodes.
	ErrOpaqueKnownKind = errors.New("opaque payload has a decoded kind")
)

// OutOfBoundsError indicates an attempt to read or write the range
// [Offset, Offset+Size) of a buffer of Length bytes.
type OutOfBoundsError struct {
	Offset int
	Size   int
	Length int
}

func (err OutOfBoundsError) Error() string {
	return fmt.Sprintf("out of bounds: range [%d, %d) exceeds buffer length %d", err.Offset, err.Offset+err.Size, err.Length)
}

// ErrInvalidMagic indicates an unexpected file signature. The value is the
// signature that was read.
type ErrInvalidMagic [4]byte

func (err ErrInvalidMagic) Error() string {
	return fmt.Sprintf("invalid magic %q (expected %q)", string(err[:]), Magic)
}

// ErrUnsupportedVersion indicates a format version outside of the supported
// set.
type ErrUnsupportedVersion uint32

func (err ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported version %d", uint32(err))
}

// TruncatedChunkTableError indicates a chunk table that does not fit within
// the buffer.
type TruncatedChunkTableError struct {
	// Offset is the declared offset of the table.
	Offset int64
	// Count is the declared number of descriptors.
	Count uint32
	// Length is the length of the buffer.
	Length int
}

func (err TruncatedChunkTableError) Error() string {
	return fmt.Sprintf("truncated chunk table: %d descriptors at offset %d exceed buffer length %d", err.Count, err.Offset, err.Length)
}

// ChunkOutOfBoundsError indicates a descriptor whose range does not fit
// within the buffer.
type ChunkOutOfBoundsError struct {
	Index  int
	Offset uint32
	Length uint32
	// BufferLength is the length of the buffer.
	BufferLength int
}

func (err ChunkOutOfBoundsError) Error() string {
	return fmt.Sprintf("chunk #%d out of bounds: range [%d, %d) exceeds buffer length %d",
		err.Index, err.Offset, uint64(err.Offset)+uint64(err.Length), err.BufferLength)
}

// ChunkLengthMismatchError indicates that a chunk decoder consumed a
// different number of bytes than the descriptor declared.
type ChunkLengthMismatchError struct {
	Index    int
	Expected int
	Consumed int
}

func (err ChunkLengthMismatchError) Error() string {
	return fmt.Sprintf("chunk #%d length mismatch: expected %d bytes, consumed %d", err.Index, err.Expected, err.Consumed)
}

// ChunkOverlapError indicates a chunk that starts before Boundary, the end of
// the previous region, under the strict layout policy.
type ChunkOverlapError struct {
	Index    int
	Offset   int
	Boundary int
}

func (err ChunkOverlapError) Error() string {
	return fmt.Sprintf("chunk #%d at offset %d overlaps previous region ending at %d", err.Index, err.Offset, err.Boundary)
}

// MisalignedChunkError indicates a chunk offset that is not a multiple of the
// policy alignment.
type MisalignedChunkError struct {
	Index     int
	Offset    int
	Alignment int
}

func (err MisalignedChunkError) Error() string {
	return fmt.Sprintf("chunk #%d at offset %d is not aligned to %d", err.Index, err.Offset, err.Alignment)
}

// ChunkError indicates an error that occurred within a chunk.
type ChunkError struct {
	// Index is the position of the chunk within the chunk table.
	Index int
	// Kind is the kind of the chunk.
	Kind Kind
	// Offset is the absolute offset of the chunk.
	Offset int

	Cause error
}

func (err ChunkError) Error() string {
	return fmt.Sprintf("#%d %q chunk at %d: %s", err.Index, err.Kind.String(), err.Offset, err.Cause.Error())
}

func (err ChunkError) Unwrap() error {
	return err.Cause
}

////////////////////////////////////////////////////////////////

// EntityCountError indicates an entity table whose record count does not
// agree with the length of its chunk.
type EntityCountError struct {
	Count  uint32
	Length int
}

func (err EntityCountError) Error() string {
	return fmt.Sprintf("invalid entity count %d for chunk length %d", err.Count, err.Length)
}

// GeometrySizeError indicates a floor plan whose dimensions do not agree with
// the number of tiles available.
type GeometrySizeError struct {
	Width  uint16
	Height uint16
	Tiles  int
}

func (err GeometrySizeError) Error() string {
	return fmt.Sprintf("floor plan %dx%d does not match %d tiles", err.Width, err.Height, err.Tiles)
}

// StringCountError indicates a string table declaring more entries than its
// chunk can hold.
type StringCountError struct {
	Count     uint32
	Available int
}

func (err StringCountError) Error() string {
	return fmt.Sprintf("string count %d exceeds %d available bytes", err.Count, err.Available)
}

// UnterminatedStringError indicates a string table entry without a
// terminator, or an entry that contains one when encoding.
type UnterminatedStringError struct {
	Entry int
}

func (err UnterminatedStringError) Error() string {
	return fmt.Sprintf("string entry %d is not terminated", err.Entry)
}

// DecompressedSizeError indicates a compressed chunk declaring a
// decompressed size larger than the policy allows.
type DecompressedSizeError struct {
	Declared uint32
	Limit    int
}

func (err DecompressedSizeError) Error() string {
	return fmt.Sprintf("decompressed size %d exceeds limit %d", err.Declared, err.Limit)
}

// DecompressError wraps an error produced by the LZ4 decoder.
type DecompressError struct {
	Cause error
}

func (err DecompressError) Error() string {
	if err.Cause == nil {
		return "lz4"
	}
	return "lz4: " + err.Cause.Error()
}

func (err DecompressError) Unwrap() error {
	return err.Cause
}

// FieldOverflowError indicates a value too large for its on-disk field.
type FieldOverflowError struct {
	Field string
	Value uint64
	Max   uint64
}

func (err FieldOverflowError) Error() string {
	return fmt.Sprintf("%s %d exceeds maximum %d", err.Field, err.Value, err.Max)
}

// IndexError indicates a chunk index outside of the level.
type IndexError struct {
	Index int
	Len   int
}

func (err IndexError) Error() string {
	return fmt.Sprintf("chunk index %d out of range [0, %d)", err.Index, err.Len)
}

// ReferenceError indicates a chunk reference that does not resolve to a
// chunk of the expected kind.
type ReferenceError struct {
	// Index is the chunk holding the reference.
	Index int
	// Field names the referencing field.
	Field string
	// Ref is the referenced chunk.
	Ref ChunkRef
	// Want is the kind the reference must resolve to.
	Want Kind
	// Got is the kind found, or zero when the reference is out of range.
	Got Kind
}

func (err ReferenceError) Error() string {
	if err.Got == 0 {
		return fmt.Sprintf("chunk #%d %s: reference %d does not exist", err.Index, err.Field, err.Ref)
	}
	return fmt.Sprintf("chunk #%d %s: reference %d is %q, expected %q", err.Index, err.Field, err.Ref, err.Got.String(), err.Want.String())
}

// EntryError indicates a string reference to an entry that the referenced
// table does not have.
type EntryError struct {
	// Index is the chunk holding the reference.
	Index int
	Table ChunkRef
	Entry uint16
	// Len is the number of entries in the table.
	Len int
}

func (err EntryError) Error() string {
	return fmt.Sprintf("chunk #%d name: entry %d of string table %d out of range [0, %d)", err.Index, err.Entry, err.Table, err.Len)
}
