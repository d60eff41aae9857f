package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"mcrs.dev/internal/persistence/snapshot"
)

type Config struct {
	DataDir string `yaml:"data_dir"`

	// DefaultDims is used by `mcrsctl new` when no -dims flag is given.
	DefaultDims []uint32 `yaml:"default_dims"`

	Compression Compression `yaml:"compression"`

	IndexDB    string `yaml:"index_db"`
	AuditDir   string `yaml:"audit_dir"`
	ArchiveDir string `yaml:"archive_dir"`

	DisableIndex bool `yaml:"disable_index"`
	DisableAudit bool `yaml:"disable_audit"`
}

type Compression struct {
	// Level is a zstd level name: fastest, default, better, best.
	Level string `yaml:"level"`
}

func Defaults() Config {
	c := Config{
		DataDir:     "./data",
		DefaultDims: []uint32{16, 16, 16},
		Compression: Compression{Level: "default"},
	}
	c.Normalize()
	return c
}

// Load reads a YAML config on top of Defaults. An empty path yields defaults.
func Load(path string) (Config, error) {
	c := Defaults()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("mcrs.yaml: %w", err)
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("mcrs.yaml: %w", err)
	}
	return c, nil
}

// Normalize fills derived paths that were left empty.
func (c *Config) Normalize() {
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if strings.TrimSpace(c.IndexDB) == "" {
		c.IndexDB = filepath.Join(c.DataDir, "index", "files.sqlite")
	}
	if strings.TrimSpace(c.AuditDir) == "" {
		c.AuditDir = filepath.Join(c.DataDir, "audit")
	}
	if strings.TrimSpace(c.ArchiveDir) == "" {
		c.ArchiveDir = filepath.Join(c.DataDir, "archives")
	}
	c.Compression.Level = strings.ToLower(strings.TrimSpace(c.Compression.Level))
}

func (c Config) Validate() error {
	if len(c.DefaultDims) != 3 {
		return fmt.Errorf("default_dims: want 3 values, got %d", len(c.DefaultDims))
	}
	if _, err := snapshot.ParseLevel(c.Compression.Level); err != nil {
		return fmt.Errorf("compression.level: %w", err)
	}
	return nil
}

func (c Config) Dims() (x, y, z uint32) {
	if len(c.DefaultDims) != 3 {
		return 0, 0, 0
	}
	return c.DefaultDims[0], c.DefaultDims[1], c.DefaultDims[2]
}
