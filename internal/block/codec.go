package block

// Encode returns the record for s: one tag byte followed by the variant's
// payload fields in declaration order.
func Encode(s State) []byte {
	if s == nil {
		s = NonBlock{}
	}
	return AppendState(make([]byte, 0, s.Variant().EncodedLen()), s)
}

// AppendState appends the record for s to dst. It does not validate s; use
// Validate first when s did not come from Decode.
func AppendState(dst []byte, s State) []byte {
	if s == nil {
		s = NonBlock{}
	}
	dst = append(dst, byte(s.Variant()))
	return s.appendPayload(dst)
}

func appendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

func (s Redstone) appendPayload(dst []byte) []byte {
	return append(dst, s.Power, byte(s.Dirs))
}

func (s Torch) appendPayload(dst []byte) []byte {
	dst = appendBool(dst, s.Activated)
	return append(dst, byte(s.Dir))
}

func (s Repeater) appendPayload(dst []byte) []byte {
	dst = append(dst, s.Delay)
	dst = appendBool(dst, s.Activated)
	dst = appendBool(dst, s.Locked)
	return append(dst, byte(s.Dir))
}

func (s Comparator) appendPayload(dst []byte) []byte {
	dst = append(dst, s.Power)
	dst = appendBool(dst, s.Mode)
	return append(dst, byte(s.Dir))
}

func (s PistonBase) appendPayload(dst []byte) []byte {
	dst = appendBool(dst, s.Activated)
	return append(dst, byte(s.Dir))
}

func (s PistonHead) appendPayload(dst []byte) []byte {
	dst = appendBool(dst, s.Sticky)
	return append(dst, byte(s.Dir))
}

func (s Opaque) appendPayload(dst []byte) []byte {
	return append(dst, byte(s.Power), s.Color)
}

func (s BlockEntity) appendPayload(dst []byte) []byte {
	return append(dst, s.Power)
}

func (Transparent) appendPayload(dst []byte) []byte { return dst }

func (NonBlock) appendPayload(dst []byte) []byte { return dst }

// Decode reads one record from the head of buf and returns the state together
// with the number of bytes it occupied. It never reads past that record.
func Decode(buf []byte) (State, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrUnexpectedEOF
	}
	v := Variant(buf[0])
	if !v.Valid() {
		return nil, 0, &DecodeError{Variant: v, Field: "tag", Value: buf[0], Err: ErrInvalidVariantTag}
	}
	n := v.EncodedLen()
	if len(buf) < n {
		return nil, 0, &DecodeError{Variant: v, Err: ErrUnexpectedEOF}
	}

	r := payloadReader{v: v, buf: buf[1:n]}
	var s State
	switch v {
	case VariantRedstone:
		var st Redstone
		st.Power = r.u8()
		st.Dirs = r.dirSet("dirs")
		s = st
	case VariantTorch:
		var st Torch
		st.Activated = r.boolean("activated")
		st.Dir = r.dir("dir")
		s = st
	case VariantRepeater:
		var st Repeater
		st.Delay = r.u8()
		st.Activated = r.boolean("activated")
		st.Locked = r.boolean("locked")
		st.Dir = r.dir("dir")
		s = st
	case VariantComparator:
		var st Comparator
		st.Power = r.u8()
		st.Mode = r.boolean("mode")
		st.Dir = r.dir("dir")
		s = st
	case VariantPistonBase:
		var st PistonBase
		st.Activated = r.boolean("activated")
		st.Dir = r.dir("dir")
		s = st
	case VariantPistonHead:
		var st PistonHead
		st.Sticky = r.boolean("sticky")
		st.Dir = r.dir("dir")
		s = st
	case VariantOpaque:
		var st Opaque
		st.Power = r.power("power")
		st.Color = r.u8()
		s = st
	case VariantBlockEntity:
		s = BlockEntity{Power: r.u8()}
	case VariantTransparent:
		s = Transparent{}
	case VariantNonBlock:
		s = NonBlock{}
	}
	if r.err != nil {
		return nil, 0, r.err
	}
	return s, n, nil
}

// payloadReader walks a payload that is already known to be long enough.
// The first validation failure sticks; later reads are no-ops.
type payloadReader struct {
	v   Variant
	buf []byte
	off int
	err error
}

func (r *payloadReader) next() (byte, bool) {
	if r.err != nil {
		return 0, false
	}
	if r.off >= len(r.buf) {
		r.err = &DecodeError{Variant: r.v, Err: ErrUnexpectedEOF}
		return 0, false
	}
	b := r.buf[r.off]
	r.off++
	return b, true
}

func (r *payloadReader) fail(field string, b byte, err error) {
	r.err = &DecodeError{Variant: r.v, Field: field, Value: b, Err: err}
}

func (r *payloadReader) u8() uint8 {
	b, _ := r.next()
	return b
}

func (r *payloadReader) boolean(field string) bool {
	b, ok := r.next()
	if !ok {
		return false
	}
	switch b {
	case 0:
		return false
	case 1:
		return true
	}
	r.fail(field, b, ErrInvalidBoolean)
	return false
}

func (r *payloadReader) dir(field string) Direction {
	b, ok := r.next()
	if !ok {
		return 0
	}
	d, err := ParseDirection(b)
	if err != nil {
		r.fail(field, b, err)
	}
	return d
}

func (r *payloadReader) dirSet(field string) DirectionSet {
	b, ok := r.next()
	if !ok {
		return 0
	}
	s, err := ParseDirectionSet(b)
	if err != nil {
		r.fail(field, b, err)
	}
	return s
}

func (r *payloadReader) power(field string) PowerState {
	b, ok := r.next()
	if !ok {
		return 0
	}
	p, err := ParsePowerState(b)
	if err != nil {
		r.fail(field, b, err)
	}
	return p
}
