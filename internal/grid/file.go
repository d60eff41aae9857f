package grid

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mcrs.dev/internal/block"
)

/* .mcrs layout:
 *
 * 0..4   "mcrs"
 * 4..16  x_len, y_len, z_len as uint32, host byte order
 * 16..   one record per cell, z outer / y / x inner
 */
const (
	Magic      = "mcrs"
	HeaderSize = len(Magic) + 3*4
)

var ErrInvalidMagic = errors.New("invalid magic")

// CellError locates a record that failed to decode.
type CellError struct {
	X, Y, Z uint32
	Offset  int
	Err     error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("cell (%d,%d,%d) at offset %d: %v", e.X, e.Y, e.Z, e.Offset, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

// AppendBinary appends the full .mcrs encoding of g to dst. A cell holding a
// state that Decode would reject fails the whole encoding.
func (g *Grid) AppendBinary(dst []byte) ([]byte, error) {
	dst = append(dst, Magic...)
	dst = binary.NativeEndian.AppendUint32(dst, g.xLen)
	dst = binary.NativeEndian.AppendUint32(dst, g.yLen)
	dst = binary.NativeEndian.AppendUint32(dst, g.zLen)
	base := len(dst) - HeaderSize
	err := g.Each(func(x, y, z uint32, b *block.Block) error {
		if err := block.Validate(b.State()); err != nil {
			return &CellError{X: x, Y: y, Z: z, Offset: len(dst) - base, Err: err}
		}
		dst = block.AppendState(dst, b.State())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

func (g *Grid) MarshalBinary() ([]byte, error) {
	return g.AppendBinary(make([]byte, 0, HeaderSize+len(g.cells)))
}

// WriteTo streams the .mcrs encoding of g to w.
func (g *Grid) WriteTo(w io.Writer) (int64, error) {
	var total int64
	put := func(p []byte) error {
		n, err := w.Write(p)
		total += int64(n)
		return err
	}

	var hdr [HeaderSize]byte
	copy(hdr[:], Magic)
	binary.NativeEndian.PutUint32(hdr[4:], g.xLen)
	binary.NativeEndian.PutUint32(hdr[8:], g.yLen)
	binary.NativeEndian.PutUint32(hdr[12:], g.zLen)
	if err := put(hdr[:]); err != nil {
		return total, err
	}

	var rec []byte
	err := g.Each(func(x, y, z uint32, b *block.Block) error {
		if err := block.Validate(b.State()); err != nil {
			return &CellError{X: x, Y: y, Z: z, Offset: int(total), Err: err}
		}
		rec = block.AppendState(rec[:0], b.State())
		return put(rec)
	})
	return total, err
}

// UnmarshalBinary replaces g with the grid encoded in data. On any error g is
// left exactly as it was. Bytes after the last record are ignored.
func (g *Grid) UnmarshalBinary(data []byte) error {
	head := data[:min(len(data), len(Magic))]
	if !bytes.HasPrefix([]byte(Magic), head) {
		return fmt.Errorf("%w: %q", ErrInvalidMagic, head)
	}
	if len(data) < HeaderSize {
		return fmt.Errorf("header: %w", block.ErrUnexpectedEOF)
	}
	x := binary.NativeEndian.Uint32(data[4:])
	y := binary.NativeEndian.Uint32(data[8:])
	z := binary.NativeEndian.Uint32(data[12:])

	body := data[HeaderSize:]
	// Every record is at least one byte.
	cells := uint64(x) * uint64(y) * uint64(z)
	if cells > uint64(len(body)) {
		return fmt.Errorf("%dx%dx%d grid needs at least %d bytes, have %d: %w", x, y, z, cells, len(body), block.ErrUnexpectedEOF)
	}

	next := New(x, y, z)
	off := 0
	err := next.Each(func(cx, cy, cz uint32, b *block.Block) error {
		n, err := b.DecodeFrom(body[off:])
		if err != nil {
			return &CellError{X: cx, Y: cy, Z: cz, Offset: HeaderSize + off, Err: err}
		}
		off += n
		return nil
	})
	if err != nil {
		return err
	}

	*g = *next
	return nil
}

// ReadFrom reads r to EOF and decodes the result into g.
func (g *Grid) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), err
	}
	return int64(len(data)), g.UnmarshalBinary(data)
}

// Write stores g at path in .mcrs format. A failed write may leave a partial
// file behind.
func (g *Grid) Write(path string) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := g.WriteTo(bw); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Read loads the .mcrs file at path into g.
func (g *Grid) Read(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := g.ReadFrom(f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
