package block

import (
	"errors"
	"testing"
)

func TestParseDirection_AcceptsOnlySingleBits(t *testing.T) {
	valid := map[byte]Direction{}
	for _, d := range Directions() {
		valid[byte(d)] = d
	}
	if len(valid) != 6 {
		t.Fatalf("directions=%d want 6", len(valid))
	}
	for i := 0; i < 256; i++ {
		b := byte(i)
		d, err := ParseDirection(b)
		if want, ok := valid[b]; ok {
			if err != nil || d != want {
				t.Fatalf("ParseDirection(%#02x)=%v,%v want %v", b, d, err, want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDirection) {
			t.Fatalf("ParseDirection(%#02x) err=%v want ErrInvalidDirection", b, err)
		}
	}
}

func TestParseDirectionSet_RejectsOutOfRangeBits(t *testing.T) {
	for i := 0; i < 256; i++ {
		s, err := ParseDirectionSet(byte(i))
		if i < 64 {
			if err != nil || s.Byte() != byte(i) {
				t.Fatalf("ParseDirectionSet(%d)=%v,%v", i, s, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDirectionSet) {
			t.Fatalf("ParseDirectionSet(%d) err=%v want ErrInvalidDirectionSet", i, err)
		}
	}
}

func TestDirectionSet_Ops(t *testing.T) {
	s := NewDirectionSet(Up, Left, Backward)
	if s.Len() != 3 {
		t.Fatalf("len=%d want 3", s.Len())
	}
	if !s.Has(Left) || s.Has(Right) {
		t.Fatalf("unexpected membership: %s", s)
	}
	s = s.Without(Left).With(Right)
	if got, want := s.String(), "{up,right,backward}"; got != want {
		t.Fatalf("String()=%q want %q", got, want)
	}
	if s.With(Direction(0x03)) != s {
		t.Fatalf("With accepted a non-single direction")
	}
	if DirectionSet(0).String() != "{}" {
		t.Fatalf("empty set String()=%q", DirectionSet(0).String())
	}
}

func TestParsePowerState(t *testing.T) {
	for i := 0; i < 256; i++ {
		p, err := ParsePowerState(byte(i))
		if i <= 2 {
			if err != nil || byte(p) != byte(i) {
				t.Fatalf("ParsePowerState(%d)=%v,%v", i, p, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidPowerState) {
			t.Fatalf("ParsePowerState(%d) err=%v", i, err)
		}
	}
}
