package dw2l

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// levelGen produces random levels.
type levelGen struct {
	*rand.Rand
	opaque  bool
	padding bool
}

func (g levelGen) bytes(n int) []byte {
	b := make([]byte, n)
	g.Read(b)
	return b
}

func (g levelGen) ref(n int) ChunkRef {
	if n == 0 || g.Intn(4) == 0 {
		return NoChunk
	}
	return ChunkRef(g.Intn(n))
}

func (g levelGen) entry() []byte {
	// Printable codes, with the occasional dictionary word.
	b := make([]byte, 0, 8)
	for i := g.Intn(8); i > 0; i-- {
		if g.Intn(5) == 0 {
			b = append(b, wordPrefixByte, byte(g.Intn(256)))
			continue
		}
		b = append(b, byte(g.Intn(0xF0)))
	}
	return b
}

const wordPrefixByte = 0xF0

func (g levelGen) payload(n int) Payload {
	kinds := 6
	if g.opaque {
		kinds++
	}
	switch g.Intn(kinds) {
	case 0:
		p := NewGeometry(uint16(g.Intn(DefaultPlanWidth+1)), uint16(g.Intn(DefaultPlanHeight+1)))
		g.Read(p.Tiles)
		return p
	case 1:
		t := &EntityTable{Entities: make([]Entity, g.Intn(6))}
		for i := range t.Entities {
			t.Entities[i] = Entity{
				Class: EntityClass(g.Intn(4)),
				X:     uint8(g.Intn(DefaultPlanWidth)),
				Y:     uint8(g.Intn(DefaultPlanHeight)),
				Flags: uint8(g.Intn(256)),
				ID:    uint16(g.Intn(0x10000)),
				Param: uint16(g.Intn(0x10000)),
				Extra: g.Uint32(),
			}
		}
		return t
	case 2:
		t := &StringTable{Entries: make([][]byte, g.Intn(5))}
		for i := range t.Entries {
			t.Entries[i] = g.entry()
		}
		return t
	case 3:
		return &Layout{
			FloorPlan: g.ref(n),
			Warps:     g.ref(n),
			Chests:    g.ref(n),
			Traps:     g.ref(n),
			Digimon:   g.ref(n),
			Reserved:  uint16(g.Intn(0x10000)),
		}
	case 4:
		f := &Floor{Name: StringRef{Table: g.ref(n), Entry: uint16(g.Intn(4))}}
		for i := range f.Layouts {
			f.Layouts[i] = g.ref(n)
		}
		return f
	case 5:
		inner := g.payload(n)
		for inner.Kind() == KindCompressed {
			inner = g.payload(n)
		}
		return Compress(inner)
	default:
		tag := kindCode(string([]byte{'X', byte('A' + g.Intn(26)), byte('A' + g.Intn(26)), '0'}))
		return &Opaque{Tag: tag, Bytes: g.bytes(g.Intn(40))}
	}
}

func (g levelGen) level() *Level {
	l := NewLevel()
	n := g.Intn(10)
	for i := 0; i < n; i++ {
		if _, err := l.Append(g.payload(n)); err != nil {
			panic(err)
		}
		if g.padding && g.Intn(3) == 0 {
			l.SetPadding(i, g.bytes(g.Intn(6)))
		}
	}
	if g.padding {
		if g.Intn(2) == 0 {
			l.SetTablePadding(g.bytes(g.Intn(8)))
		}
		if g.Intn(2) == 0 {
			l.SetTrailer(g.bytes(g.Intn(8)))
		}
	}
	return l
}

// encodeRandom returns the encoding of a random level.
func encodeRandom(t *testing.T, g levelGen) []byte {
	t.Helper()
	b, err := Encode(g.level())
	require.NoError(t, err)
	return b
}

func TestRoundTrip(t *testing.T) {
	g := levelGen{Rand: rand.New(rand.NewSource(1))}
	for i := 0; i < 200; i++ {
		b := encodeRandom(t, g)
		l, err := Decode(b)
		require.NoError(t, err, "case %d", i)
		out, err := Encode(l)
		require.NoError(t, err, "case %d", i)
		require.True(t, bytes.Equal(b, out), "case %d: round trip changed the file", i)
	}
}

func TestPreservation(t *testing.T) {
	g := levelGen{Rand: rand.New(rand.NewSource(2)), opaque: true, padding: true}
	for i := 0; i < 200; i++ {
		b := encodeRandom(t, g)
		l, err := Decode(b)
		require.NoError(t, err, "case %d", i)
		descs := l.Descriptors()

		out, err := Encode(l)
		require.NoError(t, err, "case %d", i)
		require.Equal(t, b, out, "case %d", i)
		for j, d := range descs {
			if _, ok := l.Payload(j).(*Opaque); ok {
				assert.Equal(t, b[d.Offset:d.End()], out[d.Offset:d.End()], "case %d chunk %d", i, j)
			}
		}
	}
}

func TestIdempotence(t *testing.T) {
	g := levelGen{Rand: rand.New(rand.NewSource(3)), opaque: true, padding: true}
	for i := 0; i < 200; i++ {
		b := encodeRandom(t, g)
		first, err := Decode(b)
		require.NoError(t, err, "case %d", i)
		want, err := Decode(b)
		require.NoError(t, err, "case %d", i)

		out, err := Encode(first)
		require.NoError(t, err, "case %d", i)
		second, err := Decode(out)
		require.NoError(t, err, "case %d", i)
		require.Equal(t, want, second, "case %d", i)
	}
}

func TestBounds(t *testing.T) {
	g := levelGen{Rand: rand.New(rand.NewSource(4)), opaque: true, padding: true}
	for i := 0; i < 300; i++ {
		b := encodeRandom(t, g)
		// Damage the file: truncate it or flip bytes inside the table.
		switch g.Intn(3) {
		case 0:
			b = b[:g.Intn(len(b)+1)]
		case 1:
			for j := g.Intn(4); j >= 0; j-- {
				b[g.Intn(len(b))] = byte(g.Intn(256))
			}
		case 2:
			if len(b) > HeaderSize+8 {
				b[HeaderSize+4+g.Intn(8)] = 0xFF
			}
		}

		var l *Level
		require.NotPanics(t, func() {
			l, _, _ = Decoder{Policy: Policy{Overlap: OverlapAllow}}.Decode(b)
		}, "case %d", i)
		if l == nil {
			continue
		}
		for _, d := range l.Descriptors() {
			assert.LessOrEqual(t, d.End(), uint64(len(b)), "case %d", i)
		}
	}
}

func FuzzDecode(f *testing.F) {
	f.Add(app(Magic, u32(1), u32(0), u32(16)))
	f.Add(buildFile(rawChunk{KindGeometry, geomData}, rawChunk{KindEntities, entsData}))
	f.Add(buildFile(rawChunk{KindStrings, strsData}, rawChunk{kindCode("XTRA"), []byte{1, 2}}))
	g := levelGen{Rand: rand.New(rand.NewSource(5)), opaque: true, padding: true}
	for i := 0; i < 8; i++ {
		b, err := Encode(g.level())
		if err != nil {
			f.Fatal(err)
		}
		f.Add(b)
	}

	f.Fuzz(func(t *testing.T, b []byte) {
		l, err := Decode(b)
		if err != nil {
			return
		}
		for _, d := range l.Descriptors() {
			if d.End() > uint64(len(b)) {
				t.Fatalf("descriptor %v exceeds buffer of %d bytes", d, len(b))
			}
		}
		out, err := Encode(l)
		if err != nil {
			t.Fatalf("encode after decode: %v", err)
		}
		if !bytes.Equal(b, out) {
			t.Fatalf("round trip changed the file")
		}
	})
}
