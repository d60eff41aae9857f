package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"mcrs.dev/internal/block"
	"mcrs.dev/internal/grid"
	"mcrs.dev/internal/persistence/archive"
	"mcrs.dev/internal/persistence/indexdb"
	persistlog "mcrs.dev/internal/persistence/log"
	"mcrs.dev/internal/persistence/snapshot"
)

// maxCells caps the grids new will allocate.
const maxCells = 1 << 24

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func newCmd(e *env, args []string) error {
	fs := newFlagSet("new")
	dims := fs.String("dims", "", "grid dimensions x,y,z (default: config default_dims)")
	fill := fs.String("fill", "non_block", "variant every cell starts as")
	if err := fs.Parse(args); err != nil {
		return usagef("new: %v", err)
	}
	if fs.NArg() != 1 {
		return usagef("new: want exactly one output path")
	}

	x, y, z := e.cfg.Dims()
	if strings.TrimSpace(*dims) != "" {
		var err error
		if x, y, z, err = parseDims(*dims); err != nil {
			return usagef("new: %v", err)
		}
	}
	if n := uint64(x) * uint64(y) * uint64(z); n > maxCells {
		return usagef("new: %dx%dx%d grid has %d cells, limit is %d", x, y, z, n, uint64(maxCells))
	}
	v, err := block.ParseVariant(*fill)
	if err != nil {
		return usagef("new: -fill: %v", err)
	}
	s, err := block.Zero(v)
	if err != nil {
		return err
	}

	g := grid.New(x, y, z)
	if err := g.Fill(s); err != nil {
		return err
	}
	path := fs.Arg(0)
	if err := e.save(path, g); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "wrote %s (%dx%dx%d, %d cells)\n", path, x, y, z, g.Len())
	return nil
}

func infoCmd(e *env, args []string) error {
	fs := newFlagSet("info")
	if err := fs.Parse(args); err != nil {
		return usagef("info: %v", err)
	}
	if fs.NArg() == 0 {
		return usagef("info: missing path")
	}
	for _, path := range fs.Args() {
		g, err := e.load(path)
		if err != nil {
			return err
		}
		printInfo(e.out, path, g)
	}
	return nil
}

func printInfo(w io.Writer, path string, g *grid.Grid) {
	x, y, z := g.Dims()
	d := g.Digest()
	fmt.Fprintf(w, "%s: dims=%dx%dx%d cells=%d digest=%s\n", path, x, y, z, g.Len(), hex.EncodeToString(d[:]))
	hist := g.Histogram()
	vs := make([]block.Variant, 0, len(hist))
	for v := range hist {
		vs = append(vs, v)
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i] < vs[j] })
	for _, v := range vs {
		fmt.Fprintf(w, "  %-12s %d\n", v, hist[v])
	}
}

// verifyCmd decodes each file and checks that re-encoding reproduces the
// stored record stream byte for byte.
func verifyCmd(e *env, args []string) error {
	fs := newFlagSet("verify")
	if err := fs.Parse(args); err != nil {
		return usagef("verify: %v", err)
	}
	if fs.NArg() == 0 {
		return usagef("verify: missing path")
	}
	for _, path := range fs.Args() {
		g, err := e.load(path)
		if err != nil {
			return err
		}
		if snapshot.IsCompressed(path) {
			fmt.Fprintf(e.out, "%s: ok (%d cells)\n", path, g.Len())
			continue
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		enc, err := g.MarshalBinary()
		if err != nil {
			return fmt.Errorf("verify %s: %w", path, err)
		}
		if !bytes.HasPrefix(raw, enc) {
			return fmt.Errorf("verify %s: re-encoded grid differs from file", path)
		}
		if extra := len(raw) - len(enc); extra > 0 {
			fmt.Fprintf(e.out, "%s: ok (%d cells, %d trailing bytes ignored)\n", path, g.Len(), extra)
			continue
		}
		fmt.Fprintf(e.out, "%s: ok (%d cells)\n", path, g.Len())
	}
	return nil
}

// packCmd converts between plain .mcrs and zstd-compressed files.
func packCmd(e *env, args []string, compress bool) error {
	name := "unpack"
	if compress {
		name = "pack"
	}
	fs := newFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return usagef("%s: %v", name, err)
	}
	if fs.NArg() != 2 {
		return usagef("%s: want <in> <out>", name)
	}
	in, out := fs.Arg(0), fs.Arg(1)
	if snapshot.IsCompressed(out) != compress {
		if compress {
			return usagef("pack: output must end in .zst")
		}
		return usagef("unpack: output must not end in .zst")
	}

	g, err := e.load(in)
	if err != nil {
		return err
	}
	if err := e.save(out, g); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s -> %s\n", in, out)
	return nil
}

func archiveCmd(e *env, args []string) error {
	fs := newFlagSet("archive")
	label := fs.String("label", "", "archive label (directory name)")
	if err := fs.Parse(args); err != nil {
		return usagef("archive: %v", err)
	}
	if fs.NArg() != 1 || strings.TrimSpace(*label) == "" {
		return usagef("archive: want -label and one path")
	}
	path := fs.Arg(0)
	g, err := e.load(path)
	if err != nil {
		return err
	}
	dst, err := archive.ArchiveGrid(e.cfg.ArchiveDir, path, strings.TrimSpace(*label), g)
	e.writeAudit(persistlog.NewAuditEntry("archive", dst, g, err))
	if err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}
	fmt.Fprintf(e.out, "archived %s -> %s\n", path, dst)
	return nil
}

func indexCmd(e *env, args []string) error {
	fs := newFlagSet("index")
	limit := fs.Int("limit", 20, "result limit")
	if err := fs.Parse(args); err != nil {
		return usagef("index: %v", err)
	}
	if e.idx == nil {
		return usagef("index: disabled by config")
	}
	ctx := context.Background()
	if fs.NArg() > 0 {
		r, err := e.idx.Lookup(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		printRow(e.out, r)
		return nil
	}
	rows, err := e.idx.Files(ctx, *limit)
	if err != nil {
		return err
	}
	for _, r := range rows {
		printRow(e.out, r)
	}
	return nil
}

func printRow(w io.Writer, r indexdb.FileRow) {
	kind := "plain"
	if r.Compressed {
		kind = "zstd"
	}
	fmt.Fprintf(w, "%s\t%dx%dx%d\t%d cells\t%d bytes\t%s\t%s\n", r.Path, r.X, r.Y, r.Z, r.Cells, r.Bytes, kind, r.Digest)
}

func auditCmd(e *env, args []string) error {
	fs := newFlagSet("audit")
	if err := fs.Parse(args); err != nil {
		return usagef("audit: %v", err)
	}
	entries, err := persistlog.ReadAudit(e.cfg.AuditDir)
	if err != nil {
		return err
	}
	for _, a := range entries {
		status := "ok"
		if a.Error != "" {
			status = "error: " + a.Error
		}
		fmt.Fprintf(e.out, "%s\t%s\t%s\t%d cells\t%s\n", a.Time, a.Op, a.Path, a.Cells, status)
	}
	return nil
}

func (e *env) load(path string) (*grid.Grid, error) {
	g, err := snapshot.Load(path)
	if err != nil {
		e.writeAudit(persistlog.NewAuditEntry("load", path, nil, err))
		return nil, err
	}
	e.writeAudit(persistlog.NewAuditEntry("load", path, g, nil))
	return g, nil
}

func (e *env) save(path string, g *grid.Grid) error {
	compressed := snapshot.IsCompressed(path)
	var err error
	if compressed {
		lvl, lerr := snapshot.ParseLevel(e.cfg.Compression.Level)
		if lerr != nil {
			return lerr
		}
		err = snapshot.WriteGrid(path, g, lvl)
	} else {
		err = g.Write(path)
	}
	e.writeAudit(persistlog.NewAuditEntry("save", path, g, err))
	if err != nil {
		return err
	}

	if e.idx != nil {
		var size int64
		if st, serr := os.Stat(path); serr == nil {
			size = st.Size()
		}
		if ierr := e.idx.RecordFile(context.Background(), indexdb.RowFromGrid(path, g, size, compressed)); ierr != nil {
			e.logger.Printf("index %s: %v", path, ierr)
		}
	}
	return nil
}

func (e *env) writeAudit(a persistlog.AuditEntry) {
	if e.audit == nil {
		return
	}
	if err := e.audit.WriteAudit(a); err != nil {
		e.logger.Printf("audit: %v", err)
	}
}

func parseDims(s string) (x, y, z uint32, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("dims %q: want x,y,z", s)
	}
	var out [3]uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("dims %q: %w", s, err)
		}
		out[i] = uint32(n)
	}
	return out[0], out[1], out[2], nil
}
