package block

import (
	"fmt"
	"strings"
)

// Variant is the tag byte that prefixes every encoded record.
type Variant uint8

const (
	VariantRedstone Variant = iota
	VariantTorch
	VariantRepeater
	VariantComparator
	VariantPistonBase
	VariantPistonHead
	VariantOpaque
	VariantBlockEntity
	VariantTransparent
	VariantNonBlock

	numVariants
)

// encodedLen holds tag + payload length per variant.
var encodedLen = [numVariants]int{
	VariantRedstone:    3,
	VariantTorch:       3,
	VariantRepeater:    5,
	VariantComparator:  4,
	VariantPistonBase:  3,
	VariantPistonHead:  3,
	VariantOpaque:      3,
	VariantBlockEntity: 2,
	VariantTransparent: 1,
	VariantNonBlock:    1,
}

var variantNames = [numVariants]string{
	VariantRedstone:    "redstone",
	VariantTorch:       "torch",
	VariantRepeater:    "repeater",
	VariantComparator:  "comparator",
	VariantPistonBase:  "piston_base",
	VariantPistonHead:  "piston_head",
	VariantOpaque:      "opaque",
	VariantBlockEntity: "block_entity",
	VariantTransparent: "transparent",
	VariantNonBlock:    "non_block",
}

// Variants lists every known tag in tag order.
func Variants() []Variant {
	out := make([]Variant, numVariants)
	for i := range out {
		out[i] = Variant(i)
	}
	return out
}

func (v Variant) Valid() bool { return v < numVariants }

// EncodedLen is the fixed record length of v, or 0 for an unknown tag.
func (v Variant) EncodedLen() int {
	if !v.Valid() {
		return 0
	}
	return encodedLen[v]
}

func (v Variant) String() string {
	if !v.Valid() {
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
	return variantNames[v]
}

func ParseVariant(name string) (Variant, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range variantNames {
		if s == n {
			return Variant(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown name %q", ErrInvalidVariantTag, name)
}

// State is the closed set of per-cell block states. All implementations are
// comparable values, so two states are equal iff ==.
type State interface {
	Variant() Variant
	appendPayload(dst []byte) []byte
	validate() error
}

// Validate reports whether s encodes to a record that Decode accepts. A nil
// state is treated as NonBlock.
func Validate(s State) error {
	if s == nil {
		return nil
	}
	return s.validate()
}

func invalidField(v Variant, field string, b byte, err error) error {
	return &DecodeError{Variant: v, Field: field, Value: b, Err: err}
}

func checkDir(v Variant, d Direction) error {
	if !d.Valid() {
		return invalidField(v, "dir", byte(d), ErrInvalidDirection)
	}
	return nil
}

func (s Redstone) validate() error {
	if !s.Dirs.Valid() {
		return invalidField(VariantRedstone, "dirs", byte(s.Dirs), ErrInvalidDirectionSet)
	}
	return nil
}

func (s Torch) validate() error      { return checkDir(VariantTorch, s.Dir) }
func (s Repeater) validate() error   { return checkDir(VariantRepeater, s.Dir) }
func (s Comparator) validate() error { return checkDir(VariantComparator, s.Dir) }
func (s PistonBase) validate() error { return checkDir(VariantPistonBase, s.Dir) }
func (s PistonHead) validate() error { return checkDir(VariantPistonHead, s.Dir) }

func (s Opaque) validate() error {
	if !s.Power.Valid() {
		return invalidField(VariantOpaque, "power", byte(s.Power), ErrInvalidPowerState)
	}
	return nil
}

func (BlockEntity) validate() error { return nil }
func (Transparent) validate() error { return nil }
func (NonBlock) validate() error    { return nil }

type Redstone struct {
	Power uint8
	Dirs  DirectionSet
}

type Torch struct {
	Activated bool
	Dir       Direction
}

type Repeater struct {
	Delay     uint8
	Activated bool
	Locked    bool
	Dir       Direction
}

type Comparator struct {
	Power uint8
	// Mode is true in subtract mode.
	Mode bool
	Dir  Direction
}

type PistonBase struct {
	Activated bool
	Dir       Direction
}

type PistonHead struct {
	Sticky bool
	Dir    Direction
}

type Opaque struct {
	Power PowerState
	Color uint8
}

type BlockEntity struct {
	Power uint8
}

type Transparent struct{}

type NonBlock struct{}

func (Redstone) Variant() Variant    { return VariantRedstone }
func (Torch) Variant() Variant       { return VariantTorch }
func (Repeater) Variant() Variant    { return VariantRepeater }
func (Comparator) Variant() Variant  { return VariantComparator }
func (PistonBase) Variant() Variant  { return VariantPistonBase }
func (PistonHead) Variant() Variant  { return VariantPistonHead }
func (Opaque) Variant() Variant      { return VariantOpaque }
func (BlockEntity) Variant() Variant { return VariantBlockEntity }
func (Transparent) Variant() Variant { return VariantTransparent }
func (NonBlock) Variant() Variant    { return VariantNonBlock }

// Zero returns the zero-payload state for v.
func Zero(v Variant) (State, error) {
	switch v {
	case VariantRedstone:
		return Redstone{}, nil
	case VariantTorch:
		return Torch{Dir: Up}, nil
	case VariantRepeater:
		return Repeater{Dir: Up}, nil
	case VariantComparator:
		return Comparator{Dir: Up}, nil
	case VariantPistonBase:
		return PistonBase{Dir: Up}, nil
	case VariantPistonHead:
		return PistonHead{Dir: Up}, nil
	case VariantOpaque:
		return Opaque{}, nil
	case VariantBlockEntity:
		return BlockEntity{}, nil
	case VariantTransparent:
		return Transparent{}, nil
	case VariantNonBlock:
		return NonBlock{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrInvalidVariantTag, uint8(v))
}

// Block is one grid cell. The zero Block holds NonBlock.
type Block struct {
	state State
}

func NewBlock(s State) Block {
	return Block{state: s}
}

func (b Block) State() State {
	if b.state == nil {
		return NonBlock{}
	}
	return b.state
}

func (b *Block) SetState(s State) {
	if s == nil {
		s = NonBlock{}
	}
	b.state = s
}

func (b Block) Variant() Variant { return b.State().Variant() }

// DecodeFrom replaces the block's state with the record at the head of buf.
// The block is left unchanged on error.
func (b *Block) DecodeFrom(buf []byte) (int, error) {
	s, n, err := Decode(buf)
	if err != nil {
		return 0, err
	}
	b.state = s
	return n, nil
}
