package main

import (
	"bytes"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mcrs.dev/internal/block"
	"mcrs.dev/internal/grid"
	persistlog "mcrs.dev/internal/persistence/log"
)

func testConfig(t *testing.T) (cfgPath, dataDir string) {
	t.Helper()
	dataDir = filepath.Join(t.TempDir(), "data")
	cfgPath = filepath.Join(t.TempDir(), "mcrs.yaml")
	raw := "data_dir: " + dataDir + "\ndefault_dims: [2, 2, 2]\ncompression:\n  level: fastest\n"
	if err := os.WriteFile(cfgPath, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, dataDir
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, &out, log.New(io.Discard, "", 0))
	return out.String(), err
}

func TestRun_NewPackUnpackVerify(t *testing.T) {
	cfg, dataDir := testConfig(t)
	plain := filepath.Join(dataDir, "worlds", "w.mcrs")
	packed := filepath.Join(dataDir, "worlds", "w.mcrs.zst")
	back := filepath.Join(dataDir, "worlds", "w2.mcrs")

	if _, err := runCmd(t, "-config", cfg, "new", "-dims", "3,1,2", "-fill", "transparent", plain); err != nil {
		t.Fatalf("new: %v", err)
	}
	var g grid.Grid
	if err := g.Read(plain); err != nil {
		t.Fatalf("read: %v", err)
	}
	if g.Histogram()[block.VariantTransparent] != 6 {
		t.Fatalf("histogram=%v", g.Histogram())
	}

	if _, err := runCmd(t, "-config", cfg, "pack", plain, packed); err != nil {
		t.Fatalf("pack: %v", err)
	}
	if _, err := runCmd(t, "-config", cfg, "unpack", packed, back); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	a, _ := os.ReadFile(plain)
	b, _ := os.ReadFile(back)
	if !bytes.Equal(a, b) {
		t.Fatalf("unpacked file differs from original")
	}

	out, err := runCmd(t, "-config", cfg, "verify", plain, packed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if strings.Count(out, ": ok") != 2 {
		t.Fatalf("verify output=%q", out)
	}

	out, err = runCmd(t, "-config", cfg, "index")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	for _, p := range []string{plain, packed, back} {
		if !strings.Contains(out, p) {
			t.Fatalf("index output missing %s: %q", p, out)
		}
	}

	entries, err := persistlog.ReadAudit(filepath.Join(dataDir, "audit"))
	if err != nil {
		t.Fatalf("ReadAudit: %v", err)
	}
	if len(entries) < 5 {
		t.Fatalf("audit entries=%d", len(entries))
	}
}

func TestRun_InfoUsesDefaultDims(t *testing.T) {
	cfg, dataDir := testConfig(t)
	path := filepath.Join(dataDir, "d.mcrs")
	if _, err := runCmd(t, "-config", cfg, "new", path); err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := runCmd(t, "-config", cfg, "info", path)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, "dims=2x2x2 cells=8") || !strings.Contains(out, "non_block") {
		t.Fatalf("info output=%q", out)
	}
}

func TestRun_ArchiveWritesMeta(t *testing.T) {
	cfg, dataDir := testConfig(t)
	path := filepath.Join(dataDir, "a.mcrs")
	if _, err := runCmd(t, "-config", cfg, "new", path); err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := runCmd(t, "-config", cfg, "archive", "-label", "v1", path); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "archives", "v1", "meta.json")); err != nil {
		t.Fatalf("meta.json: %v", err)
	}
}

func TestRun_BadFileIsRuntimeError(t *testing.T) {
	cfg, dataDir := testConfig(t)
	path := filepath.Join(dataDir, "bad.mcrs")
	_ = os.MkdirAll(dataDir, 0o755)
	_ = os.WriteFile(path, []byte("nope"), 0o644)

	_, err := runCmd(t, "-config", cfg, "info", path)
	if !errors.Is(err, grid.ErrInvalidMagic) {
		t.Fatalf("err=%v want ErrInvalidMagic", err)
	}
	var ue usageError
	if errors.As(err, &ue) {
		t.Fatalf("bad file reported as usage error")
	}
}

func TestRun_UsageErrors(t *testing.T) {
	cfg, _ := testConfig(t)
	cases := [][]string{
		{"-config", cfg},
		{"-config", cfg, "explode"},
		{"-config", cfg, "new"},
		{"-config", cfg, "new", "-dims", "1,2", "x.mcrs"},
		{"-config", cfg, "new", "-fill", "lava", "x.mcrs"},
		{"-config", cfg, "pack", "a.mcrs", "b.mcrs"},
		{"-config", cfg, "archive", "a.mcrs"},
	}
	for _, args := range cases {
		_, err := runCmd(t, args...)
		var ue usageError
		if !errors.As(err, &ue) {
			t.Fatalf("run(%v) err=%v want usage error", args, err)
		}
	}
}

func TestRun_NewRejectsOversizedGrid(t *testing.T) {
	cfg, dataDir := testConfig(t)
	path := filepath.Join(dataDir, "huge.mcrs")

	for _, dims := range []string{"4294967295,4294967295,4294967295", "4096,4096,2"} {
		_, err := runCmd(t, "-config", cfg, "new", "-dims", dims, path)
		var ue usageError
		if !errors.As(err, &ue) {
			t.Fatalf("new -dims %s err=%v want usage error", dims, err)
		}
		if !strings.Contains(err.Error(), "limit") {
			t.Fatalf("err=%q does not mention the limit", err)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("oversized grid left a file behind: %v", err)
	}
}

func TestParseDims(t *testing.T) {
	x, y, z, err := parseDims(" 4, 5 ,6")
	if err != nil || x != 4 || y != 5 || z != 6 {
		t.Fatalf("parseDims=%d,%d,%d,%v", x, y, z, err)
	}
	for _, bad := range []string{"", "1,2", "1,2,-3", "1,2,99999999999"} {
		if _, _, _, err := parseDims(bad); err == nil {
			t.Fatalf("parseDims(%q) accepted", bad)
		}
	}
}
