package dw2l

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// u16 and u32 mark little-endian integers for app.
type (
	u16 uint16
	u32 uint32
)

// app concatenates its arguments into a byte slice. Strings and byte slices
// are copied as is, ints are single bytes.
func app(bs ...interface{}) []byte {
	var s []byte
	for _, b := range bs {
		switch b := b.(type) {
		case string:
			s = append(s, b...)
		case []byte:
			s = append(s, b...)
		case byte:
			s = append(s, b)
		case int:
			s = append(s, byte(b))
		case u16:
			s = binary.LittleEndian.AppendUint16(s, uint16(b))
		case u32:
			s = binary.LittleEndian.AppendUint32(s, uint32(b))
		case Kind:
			s = binary.LittleEndian.AppendUint32(s, uint32(b))
		default:
			panic("app: unsupported type")
		}
	}
	return s
}

// rep returns n copies of b.
func rep(b byte, n int) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = b
	}
	return s
}

type rawChunk struct {
	kind Kind
	data []byte
}

// buildFile lays out chunks the way the encoder does under the default
// policy: header, table at 16, then each chunk in order.
func buildFile(chunks ...rawChunk) []byte {
	table := HeaderSize
	off := table + len(chunks)*DescriptorSize
	b := app(Magic, u32(Version), u32(len(chunks)), u32(table))
	for _, c := range chunks {
		b = app(b, c.kind, u32(off), u32(len(c.data)))
		off += len(c.data)
	}
	for _, c := range chunks {
		b = app(b, c.data)
	}
	return b
}

// mustBytes serializes p.
func mustBytes(t testing.TB, p Payload) []byte {
	t.Helper()
	b, err := encodePayload(p)
	require.NoError(t, err)
	return b
}

// sampleLevel returns a Level holding one chunk of each kind, with
// references between them that resolve.
func sampleLevel(t testing.TB) *Level {
	t.Helper()
	l := NewLevel()

	plan := NewGeometry(4, 3)
	plan.SetTile(1, 1, 0x20)
	names := &StringTable{}
	_, err := names.AppendText("Dungeon 1F")
	require.NoError(t, err)

	add := func(p Payload) ChunkRef {
		i, err := l.Append(p)
		require.NoError(t, err)
		return ChunkRef(i)
	}
	nameRef := add(names)
	planRef := add(plan)
	warps := add(&EntityTable{Entities: []Entity{
		{Class: EntityWarp, X: 1, Y: 2, ID: 3},
	}})
	chests := add(Compress(&EntityTable{Entities: []Entity{
		{Class: EntityChest, X: 2, Y: 2, ID: 0x10, Param: 1},
		{Class: EntityChest, X: 3, Y: 1, ID: 0x11, Param: 2, Extra: 0xDEADBEEF},
	}}))
	layout := add(&Layout{
		FloorPlan: planRef,
		Warps:     warps,
		Chests:    chests,
		Traps:     NoChunk,
		Digimon:   NoChunk,
	})
	floor := &Floor{Name: StringRef{Table: nameRef, Entry: 0}}
	for i := range floor.Layouts {
		floor.Layouts[i] = layout
	}
	add(floor)
	add(&Opaque{Tag: kindCode("XTRA"), Bytes: []byte{1, 2, 3, 4, 5}})
	return l
}

type placedChunk struct {
	kind Kind
	off  int
	data []byte
}

// placeFile writes a file of the given size with the chunk table at table
// and each chunk at its own offset. Bytes not covered are zero.
func placeFile(size, table int, chunks ...placedChunk) []byte {
	b := make([]byte, size)
	copy(b, app(Magic, u32(Version), u32(len(chunks)), u32(table)))
	for i, c := range chunks {
		copy(b[table+i*DescriptorSize:], app(c.kind, u32(c.off), u32(len(c.data))))
		copy(b[c.off:], c.data)
	}
	return b
}
