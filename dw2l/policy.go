package dw2l

import "fmt"

// OverlapPolicy selects how chunk ranges may relate to each other.
type OverlapPolicy string

const (
	// OverlapStrict requires chunks to follow the chunk table in descriptor
	// order without overlapping. Every file accepted under this policy
	// encodes back to identical bytes.
	OverlapStrict OverlapPolicy = "strict"
	// OverlapAllow accepts any chunk ranges within the buffer. Shared bytes
	// are duplicated when the file is encoded again.
	OverlapAllow OverlapPolicy = "allow"
)

// DefaultMaxDecompressedSize limits the declared size of a compressed chunk.
const DefaultMaxDecompressedSize = 16 << 20

// Policy holds the layout rules that are not fixed by the format. The zero
// value behaves like DefaultPolicy.
type Policy struct {
	// Overlap selects the overlap rule. Empty means OverlapStrict.
	Overlap OverlapPolicy `yaml:"overlap"`

	// Alignment is the boundary chunk offsets must be a multiple of. The
	// encoder pads with zeros to reach it. Zero or one means no alignment.
	Alignment int `yaml:"alignment"`

	// MaxDecompressedSize limits the declared size of a compressed chunk.
	// Zero means DefaultMaxDecompressedSize.
	MaxDecompressedSize int `yaml:"max_decompressed_size"`
}

// DefaultPolicy returns the strict, unaligned policy.
func DefaultPolicy() Policy {
	return Policy{
		Overlap:             OverlapStrict,
		Alignment:           1,
		MaxDecompressedSize: DefaultMaxDecompressedSize,
	}
}

// Validate reports whether the policy fields hold usable values.
func (p Policy) Validate() error {
	switch p.Overlap {
	case "", OverlapStrict, OverlapAllow:
	default:
		return fmt.Errorf("unknown overlap policy %q", p.Overlap)
	}
	if p.Alignment < 0 {
		return fmt.Errorf("negative alignment %d", p.Alignment)
	}
	if p.MaxDecompressedSize < 0 {
		return fmt.Errorf("negative decompressed size limit %d", p.MaxDecompressedSize)
	}
	return nil
}

// normalize replaces zero fields with their defaults.
func (p Policy) normalize() Policy {
	if p.Overlap == "" {
		p.Overlap = OverlapStrict
	}
	if p.Alignment <= 0 {
		p.Alignment = 1
	}
	if p.MaxDecompressedSize <= 0 {
		p.MaxDecompressedSize = DefaultMaxDecompressedSize
	}
	return p
}

func (p Policy) strict() bool {
	return p.Overlap != OverlapAllow
}

// align rounds n up to the policy alignment.
func (p Policy) align(n uint64) uint64 {
	if p.Alignment <= 1 {
		return n
	}
	a := uint64(p.Alignment)
	if r := n % a; r != 0 {
		n += a - r
	}
	return n
}

// aligned returns whether n is a multiple of the policy alignment.
func (p Policy) aligned(n uint64) bool {
	return p.align(n) == n
}
