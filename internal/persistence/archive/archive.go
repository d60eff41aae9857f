package archive

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"mcrs.dev/internal/grid"
)

// MetaFile sits next to every archived grid file.
const MetaFile = "meta.json"

var labelRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

type Meta struct {
	Label     string         `json:"label"`
	File      string         `json:"file"`
	Dims      [3]uint32      `json:"dims"`
	Cells     int            `json:"cells"`
	Digest    string         `json:"digest"`
	Counts    map[string]int `json:"counts"`
	CreatedAt string         `json:"created_at"`
}

// ArchiveGrid copies the grid file at srcPath into archiveDir/<label>/ and
// writes meta.json describing g, which must be the grid decoded from srcPath.
// It returns the archived file path.
func ArchiveGrid(archiveDir, srcPath, label string, g *grid.Grid) (string, error) {
	if !labelRe.MatchString(label) {
		return "", fmt.Errorf("invalid archive label %q", label)
	}
	dir := filepath.Join(archiveDir, label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(dir, filepath.Base(srcPath))
	if err := copyFile(srcPath, dst); err != nil {
		return "", err
	}

	x, y, z := g.Dims()
	d := g.Digest()
	meta := Meta{
		Label:     label,
		File:      filepath.Base(dst),
		Dims:      [3]uint32{x, y, z},
		Cells:     g.Len(),
		Digest:    hex.EncodeToString(d[:]),
		Counts:    map[string]int{},
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	for v, n := range g.Histogram() {
		meta.Counts[v.String()] = n
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, MetaFile), b, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

func ReadMeta(dir string) (Meta, error) {
	var m Meta
	b, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("%s: %w", MetaFile, err)
	}
	return m, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
