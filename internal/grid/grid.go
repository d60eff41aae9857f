package grid

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"mcrs.dev/internal/block"
)

var ErrOutOfBounds = errors.New("coordinate out of bounds")

// Grid is a dense x_len × y_len × z_len array of blocks. The zero value is an
// empty 0×0×0 grid.
type Grid struct {
	xLen, yLen, zLen uint32

	// cells[x + y*xLen + z*xLen*yLen]
	cells []block.Block
}

func New(x, y, z uint32) *Grid {
	g := &Grid{}
	g.Resize(x, y, z)
	return g
}

// Resize discards every cell and replaces the array with a fresh one of the
// given shape filled with NonBlock.
func (g *Grid) Resize(x, y, z uint32) {
	n := uint64(x) * uint64(y) * uint64(z)
	g.cells = make([]block.Block, n)
	g.xLen, g.yLen, g.zLen = x, y, z
}

func (g *Grid) Dims() (x, y, z uint32) { return g.xLen, g.yLen, g.zLen }

// Len is the number of cells.
func (g *Grid) Len() int { return len(g.cells) }

func (g *Grid) InBounds(x, y, z uint32) bool {
	return x < g.xLen && y < g.yLen && z < g.zLen
}

func (g *Grid) index(x, y, z uint32) (int, error) {
	if !g.InBounds(x, y, z) {
		return 0, fmt.Errorf("%w: (%d,%d,%d) not within %dx%dx%d", ErrOutOfBounds, x, y, z, g.xLen, g.yLen, g.zLen)
	}
	xl, yl := uint64(g.xLen), uint64(g.yLen)
	return int(uint64(x) + uint64(y)*xl + uint64(z)*xl*yl), nil
}

func (g *Grid) Get(x, y, z uint32) (block.Block, error) {
	i, err := g.index(x, y, z)
	if err != nil {
		return block.Block{}, err
	}
	return g.cells[i], nil
}

// At returns a pointer to the cell for in-place mutation.
func (g *Grid) At(x, y, z uint32) (*block.Block, error) {
	i, err := g.index(x, y, z)
	if err != nil {
		return nil, err
	}
	return &g.cells[i], nil
}

// Set replaces one cell. States that would not survive a write/read round
// trip are rejected and the cell is left unchanged.
func (g *Grid) Set(x, y, z uint32, s block.State) error {
	b, err := g.At(x, y, z)
	if err != nil {
		return err
	}
	if err := block.Validate(s); err != nil {
		return err
	}
	b.SetState(s)
	return nil
}

// Fill sets every cell to s.
func (g *Grid) Fill(s block.State) error {
	if err := block.Validate(s); err != nil {
		return err
	}
	for i := range g.cells {
		g.cells[i].SetState(s)
	}
	return nil
}

// Each visits every cell in serialization order: z outermost, then y, then x.
// Both the writer and the reader go through here; iteration stops at the
// first error fn returns.
func (g *Grid) Each(fn func(x, y, z uint32, b *block.Block) error) error {
	i := 0
	for z := uint32(0); z < g.zLen; z++ {
		for y := uint32(0); y < g.yLen; y++ {
			for x := uint32(0); x < g.xLen; x++ {
				if err := fn(x, y, z, &g.cells[i]); err != nil {
					return err
				}
				i++
			}
		}
	}
	return nil
}

func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.xLen != o.xLen || g.yLen != o.yLen || g.zLen != o.zLen || len(g.cells) != len(o.cells) {
		return false
	}
	for i := range g.cells {
		if g.cells[i].State() != o.cells[i].State() {
			return false
		}
	}
	return true
}

// Digest is the sha256 of the grid's .mcrs encoding.
func (g *Grid) Digest() [32]byte {
	h := sha256.New()
	_, _ = g.WriteTo(h)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Histogram counts cells per variant. Variants with no cells are omitted.
func (g *Grid) Histogram() map[block.Variant]int {
	out := map[block.Variant]int{}
	for i := range g.cells {
		out[g.cells[i].Variant()]++
	}
	return out
}
