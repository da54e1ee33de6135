// Package dw2l implements a decoder and encoder for the DW2L level container
// used by Digimon World 2 dungeon data.
//
// A file starts with a fixed 16-byte header, followed somewhere by a table of
// chunk descriptors. Each descriptor locates one chunk by offset and length
// and tags it with a four-byte kind. Nothing in the file describes itself:
// every structure is found through an offset, so the decoder treats each
// chunk as an isolated window and checks that the chunk decoder consumes
// exactly the declared length.
//
// The easiest way to decode and encode files is through the functions Decode
// and Encode. These convert directly between byte slices and a Level. The
// Decoder and Encoder types expose the layout Policy, a logger, and the
// warnings collected along the way.
//
// Chunks of a kind the codec does not know are kept as Opaque payloads, which
// hold the original bytes verbatim. Padding between chunks and bytes after
// the last chunk are also kept. A file decoded under the strict policy
// encodes back to the same bytes.
package dw2l

import "strings"

// Magic is the signature at the start of every file.
const Magic = "DW2L"

const (
	// HeaderSize is the size of the file header.
	HeaderSize = 16
	// DescriptorSize is the size of one chunk table entry.
	DescriptorSize = 12
)

// Version is the format version written by the encoder.
const Version = 1

// VersionSupported returns whether the codec understands format version v.
// The supported set is pinned to the layout this package implements.
func VersionSupported(v uint32) bool {
	return v == Version
}

////////////////////////////////////////////////////////////////

// Kind identifies the contents of a chunk. It is stored as four ASCII bytes,
// which read as a little-endian integer.
type Kind uint32

// kindCode packs a four-character code the way it is laid out on disk.
func kindCode(s string) Kind {
	return Kind(uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24)
}

// Known chunk kinds.
var (
	KindGeometry   = kindCode("GEOM") // Floor plan tiles.
	KindEntities   = kindCode("ENTS") // Warps, chests, traps and digimon.
	KindStrings    = kindCode("STRS") // Text in the game charset.
	KindLayout     = kindCode("LAYT") // References to one layout's chunks.
	KindFloor      = kindCode("FLOR") // Floor name and its layouts.
	KindCompressed = kindCode("LZ4C") // LZ4 wrapper around another chunk.
)

// ParseKind returns the Kind for a four-character code.
func ParseKind(s string) (Kind, bool) {
	if len(s) != 4 {
		return 0, false
	}
	return kindCode(s), true
}

// Known returns whether the codec decodes chunks of kind k.
func (k Kind) Known() bool {
	switch k {
	case KindGeometry, KindEntities, KindStrings, KindLayout, KindFloor, KindCompressed:
		return true
	}
	return false
}

// Code returns the four bytes of the kind as laid out on disk.
func (k Kind) Code() [4]byte {
	return [4]byte{byte(k), byte(k >> 8), byte(k >> 16), byte(k >> 24)}
}

// String returns the kind as four characters, replacing unprintable bytes
// with '.'.
func (k Kind) String() string {
	var s strings.Builder
	for _, c := range k.Code() {
		if 32 <= c && c <= 126 {
			s.WriteByte(c)
		} else {
			s.WriteByte('.')
		}
	}
	return s.String()
}

////////////////////////////////////////////////////////////////

// Header is the fixed-size file header.
type Header struct {
	Magic            [4]byte
	Version          uint32
	ChunkCount       uint32
	ChunkTableOffset uint32
}

// Descriptor locates one chunk within the file.
type Descriptor struct {
	Kind   Kind
	Offset uint32
	Length uint32
}

// End returns the offset just past the chunk.
func (d Descriptor) End() uint64 {
	return uint64(d.Offset) + uint64(d.Length)
}

// ChunkRef is the index of a chunk within the chunk table.
type ChunkRef uint16

// NoChunk is the ChunkRef meaning "no chunk".
const NoChunk ChunkRef = 0xFFFF

// Valid returns whether r refers to a chunk.
func (r ChunkRef) Valid() bool {
	return r != NoChunk
}
