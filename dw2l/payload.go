package dw2l

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dw2tools/dw2file/charset"
)

// Payload is the decoded content of one chunk. It is implemented by
// *Geometry, *EntityTable, *StringTable, *Layout, *Floor, *Compressed and
// *Opaque.
type Payload interface {
	// Kind returns the kind the payload is written as.
	Kind() Kind

	// WriteTo writes the serialized payload to w.
	io.WriterTo
}

////////////////////////////////////////////////////////////////

// Floor plans in the retail data are 32 tiles wide and 48 tiles tall.
const (
	DefaultPlanWidth  = 32
	DefaultPlanHeight = 48
)

// Geometry is a floor plan: a grid of tile codes stored row by row.
type Geometry struct {
	Width  uint16
	Height uint16
	Tiles  []byte
}

// NewGeometry returns a zeroed floor plan of the given size.
func NewGeometry(width, height uint16) *Geometry {
	return &Geometry{
		Width:  width,
		Height: height,
		Tiles:  make([]byte, int(width)*int(height)),
	}
}

func (*Geometry) Kind() Kind { return KindGeometry }

// Tile returns the tile at column x and row y. Returns false if the
// coordinates are outside of the plan.
func (g *Geometry) Tile(x, y int) (byte, bool) {
	i, ok := g.index(x, y)
	if !ok {
		return 0, false
	}
	return g.Tiles[i], true
}

// SetTile sets the tile at column x and row y.
func (g *Geometry) SetTile(x, y int, t byte) bool {
	i, ok := g.index(x, y)
	if !ok {
		return false
	}
	g.Tiles[i] = t
	return true
}

func (g *Geometry) index(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= int(g.Width) || y >= int(g.Height) {
		return 0, false
	}
	i := y*int(g.Width) + x
	if i >= len(g.Tiles) {
		return 0, false
	}
	return i, true
}

////////////////////////////////////////////////////////////////

// EntityClass is the category of an entity placement.
type EntityClass uint8

const (
	EntityWarp EntityClass = iota
	EntityChest
	EntityTrap
	EntityDigimon
)

func (c EntityClass) String() string {
	switch c {
	case EntityWarp:
		return "Warp"
	case EntityChest:
		return "Chest"
	case EntityTrap:
		return "Trap"
	case EntityDigimon:
		return "Digimon"
	default:
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
}

// entitySize is the size of one entity record.
const entitySize = 12

// Entity is one placement within an entity table. ID and Param are kept as
// raw numbers; what they mean depends on the class.
type Entity struct {
	Class EntityClass
	X     uint8
	Y     uint8
	Flags uint8
	ID    uint16
	Param uint16
	// Extra is not understood and is preserved.
	Extra uint32
}

// EntityTable is a list of entity placements.
type EntityTable struct {
	Entities []Entity
}

func (*EntityTable) Kind() Kind { return KindEntities }

// Count returns the number of entities of class c.
func (t *EntityTable) Count(c EntityClass) int {
	n := 0
	for _, e := range t.Entities {
		if e.Class == c {
			n++
		}
	}
	return n
}

////////////////////////////////////////////////////////////////

// StringTable is a list of strings in the game charset. Entries hold the
// encoded bytes without their terminator.
type StringTable struct {
	Entries [][]byte
}

func (*StringTable) Kind() Kind { return KindStrings }

// Text returns entry i decoded to text.
func (t *StringTable) Text(i int) (string, error) {
	if i < 0 || i >= len(t.Entries) {
		return "", IndexError{Index: i, Len: len(t.Entries)}
	}
	return charset.Decode(t.Entries[i])
}

// SetText encodes s and stores it as entry i.
func (t *StringTable) SetText(i int, s string) error {
	if i < 0 || i >= len(t.Entries) {
		return IndexError{Index: i, Len: len(t.Entries)}
	}
	b, err := charset.Encode(s)
	if err != nil {
		return err
	}
	t.Entries[i] = b
	return nil
}

// AppendText encodes s, appends it, and returns its entry index.
func (t *StringTable) AppendText(s string) (int, error) {
	b, err := charset.Encode(s)
	if err != nil {
		return 0, err
	}
	t.Entries = append(t.Entries, b)
	return len(t.Entries) - 1, nil
}

////////////////////////////////////////////////////////////////

// Layout references the chunks that make up one layout of a floor.
type Layout struct {
	FloorPlan ChunkRef // GEOM
	Warps     ChunkRef // ENTS
	Chests    ChunkRef // ENTS
	Traps     ChunkRef // ENTS
	Digimon   ChunkRef // ENTS
	// Reserved is not understood and is preserved.
	Reserved uint16
}

func (*Layout) Kind() Kind { return KindLayout }

const layoutSize = 12

// refs returns the references of the layout with the field names and kinds
// they must resolve to.
func (l *Layout) refs() []fieldRef {
	return []fieldRef{
		{"floor plan", l.FloorPlan, KindGeometry},
		{"warps", l.Warps, KindEntities},
		{"chests", l.Chests, KindEntities},
		{"traps", l.Traps, KindEntities},
		{"digimon", l.Digimon, KindEntities},
	}
}

// LayoutsPerFloor is the number of layout slots of a floor.
const LayoutsPerFloor = 8

// StringRef locates one entry of a string table.
type StringRef struct {
	Table ChunkRef
	Entry uint16
}

// Floor names a floor and lists its layouts. Slots may repeat a layout.
type Floor struct {
	Name    StringRef
	Layouts [LayoutsPerFloor]ChunkRef
}

func (*Floor) Kind() Kind { return KindFloor }

const floorSize = 4 + 2*LayoutsPerFloor

// UniqueLayouts returns the distinct layout references of the floor in slot
// order.
func (f *Floor) UniqueLayouts() []ChunkRef {
	seen := make(map[ChunkRef]bool, LayoutsPerFloor)
	var refs []ChunkRef
	for _, r := range f.Layouts {
		if !r.Valid() || seen[r] {
			continue
		}
		seen[r] = true
		refs = append(refs, r)
	}
	return refs
}

type fieldRef struct {
	field string
	ref   ChunkRef
	want  Kind
}

////////////////////////////////////////////////////////////////

// Compressed wraps a payload that is stored LZ4-compressed.
type Compressed struct {
	Inner Payload

	// plain and packed are the decompressed and compressed bytes last decoded
	// or encoded. The encoder reuses packed while Inner still serializes to
	// plain.
	plain  []byte
	packed []byte
}

// Compress returns p wrapped for compressed storage.
func Compress(p Payload) *Compressed {
	return &Compressed{Inner: p}
}

func (*Compressed) Kind() Kind { return KindCompressed }

// InnerKind returns the kind of the wrapped payload.
func (c *Compressed) InnerKind() Kind {
	if c.Inner == nil {
		return 0
	}
	return c.Inner.Kind()
}

////////////////////////////////////////////////////////////////

// Opaque is a chunk whose content is not decoded. Bytes are written back
// exactly as they are. Tag must not be a kind the codec decodes; encoding
// such a payload fails with ErrOpaqueKnownKind.
type Opaque struct {
	Tag   Kind
	Bytes []byte
}

func (o *Opaque) Kind() Kind { return o.Tag }

// Equal returns whether o and p hold the same kind and bytes.
func (o *Opaque) Equal(p *Opaque) bool {
	return o.Tag == p.Tag && bytes.Equal(o.Bytes, p.Bytes)
}

// innerKind returns the kind of p, looking through compression.
func innerKind(p Payload) Kind {
	if c, ok := p.(*Compressed); ok {
		return c.InnerKind()
	}
	if p == nil {
		return 0
	}
	return p.Kind()
}
