package block

import (
	"fmt"
	"strings"
)

// Direction is a single orientation flag. Its byte value is exactly one of the
// six defined bits.
type Direction uint8

const (
	Up Direction = 1 << iota
	Down
	Left
	Right
	Forward
	Backward
)

const allDirections = uint8(Up | Down | Left | Right | Forward | Backward)

var directions = [...]Direction{Up, Down, Left, Right, Forward, Backward}

// Directions returns the six flags in ascending bit order.
func Directions() []Direction {
	out := make([]Direction, len(directions))
	copy(out, directions[:])
	return out
}

func (d Direction) Valid() bool {
	b := uint8(d)
	return b != 0 && b&allDirections == b && b&(b-1) == 0
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	}
	return fmt.Sprintf("direction(%#02x)", uint8(d))
}

// ParseDirection validates a single-direction byte.
func ParseDirection(b byte) (Direction, error) {
	d := Direction(b)
	if !d.Valid() {
		return 0, ErrInvalidDirection
	}
	return d, nil
}

// DirectionSet is any combination of the six flags, stored as one bitmask byte.
type DirectionSet uint8

func NewDirectionSet(dirs ...Direction) DirectionSet {
	var s DirectionSet
	for _, d := range dirs {
		s = s.With(d)
	}
	return s
}

// ParseDirectionSet rejects bytes with bits outside the six flag positions.
func ParseDirectionSet(b byte) (DirectionSet, error) {
	if !DirectionSet(b).Valid() {
		return 0, ErrInvalidDirectionSet
	}
	return DirectionSet(b), nil
}

// Valid reports whether every set bit is one of the six flags.
func (s DirectionSet) Valid() bool { return uint8(s)&^allDirections == 0 }

func (s DirectionSet) Has(d Direction) bool { return d.Valid() && uint8(s)&uint8(d) != 0 }

func (s DirectionSet) With(d Direction) DirectionSet {
	if !d.Valid() {
		return s
	}
	return s | DirectionSet(d)
}

func (s DirectionSet) Without(d Direction) DirectionSet { return s &^ DirectionSet(d) }

func (s DirectionSet) Len() int {
	n := 0
	for _, d := range directions {
		if s.Has(d) {
			n++
		}
	}
	return n
}

func (s DirectionSet) Directions() []Direction {
	var out []Direction
	for _, d := range directions {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (s DirectionSet) Byte() byte { return byte(s) }

func (s DirectionSet) String() string {
	ds := s.Directions()
	if len(ds) == 0 {
		return "{}"
	}
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.String()
	}
	return "{" + strings.Join(names, ",") + "}"
}

// PowerState is the redstone power level of an opaque block.
type PowerState uint8

const (
	PowerOff PowerState = iota
	PowerWeak
	PowerStrong
)

func (p PowerState) Valid() bool { return p <= PowerStrong }

func (p PowerState) String() string {
	switch p {
	case PowerOff:
		return "off"
	case PowerWeak:
		return "weak"
	case PowerStrong:
		return "strong"
	}
	return fmt.Sprintf("power(%d)", uint8(p))
}

func ParsePowerState(b byte) (PowerState, error) {
	p := PowerState(b)
	if !p.Valid() {
		return 0, ErrInvalidPowerState
	}
	return p, nil
}
