package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if x, y, z := c.Dims(); x != 16 || y != 16 || z != 16 {
		t.Fatalf("dims=%d,%d,%d", x, y, z)
	}
	if c.IndexDB != filepath.Join("data", "index", "files.sqlite") {
		t.Fatalf("index_db=%q", c.IndexDB)
	}
}

func TestLoad_OverridesAndDerivesPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcrs.yaml")
	raw := `
data_dir: /srv/mcrs
default_dims: [4, 2, 8]
compression:
  level: Best
disable_audit: true
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if x, y, z := c.Dims(); x != 4 || y != 2 || z != 8 {
		t.Fatalf("dims=%d,%d,%d", x, y, z)
	}
	if c.Compression.Level != "best" || !c.DisableAudit || c.DisableIndex {
		t.Fatalf("config=%+v", c)
	}
	if c.ArchiveDir != filepath.Join("/srv/mcrs", "archives") || c.AuditDir != filepath.Join("/srv/mcrs", "audit") {
		t.Fatalf("derived dirs: archive=%q audit=%q", c.ArchiveDir, c.AuditDir)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"dims":  "default_dims: [1, 2]\n",
		"level": "compression:\n  level: ludicrous\n",
		"yaml":  "default_dims: [1, 2\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mcrs.yaml")
			_ = os.WriteFile(path, []byte(raw), 0o644)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), "mcrs.yaml") {
				t.Fatalf("err=%v", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Fatalf("err=%v want not-exist", err)
	}
}
