package snapshot

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"mcrs.dev/internal/grid"
)

// Ext is the suffix of zstd-compressed grid files. The decompressed payload is
// a plain .mcrs stream.
const Ext = ".mcrs.zst"

func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// ParseLevel maps a config string to a zstd encoder level.
func ParseLevel(s string) (zstd.EncoderLevel, error) {
	if strings.TrimSpace(s) == "" {
		return zstd.SpeedDefault, nil
	}
	ok, lvl := zstd.EncoderLevelFromString(strings.TrimSpace(s))
	if !ok {
		return 0, fmt.Errorf("unknown zstd level %q", s)
	}
	return lvl, nil
}

func WriteGrid(path string, g *grid.Grid, level zstd.EncoderLevel) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
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

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(level))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)
	if _, err := g.WriteTo(bw); err != nil {
		_ = enc.Close()
		return fmt.Errorf("zstd encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return fmt.Errorf("zstd encode: %w", err)
	}
	return enc.Close()
}

func ReadGrid(path string) (*grid.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	g := &grid.Grid{}
	if _, err := g.ReadFrom(bufio.NewReaderSize(dec, 256*1024)); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return g, nil
}

// Load reads either a plain or a compressed grid file, chosen by suffix.
func Load(path string) (*grid.Grid, error) {
	if IsCompressed(path) {
		return ReadGrid(path)
	}
	g := &grid.Grid{}
	if err := g.Read(path); err != nil {
		return nil, err
	}
	return g, nil
}
