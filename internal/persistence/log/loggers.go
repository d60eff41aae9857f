package log

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"mcrs.dev/internal/grid"
)

const fileSuffix = ".jsonl.zst"

// JSONLZstdWriter appends JSON lines to zstd-compressed files rotated per UTC
// day: <dir>/<prefix>-YYYY-MM-DD.jsonl.zst. Each open appends a new zstd frame.
type JSONLZstdWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(dir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		dir:    dir,
		prefix: prefix,
		now:    time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.now().UTC().Format("2006-01-02")
	if day != w.curDay {
		if err := w.openLocked(day); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) openLocked(day string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathFor(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 32*1024)
	w.curDay = day
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var errs []error
	if w.w != nil {
		errs = append(errs, w.w.Flush())
	}
	if w.enc != nil {
		errs = append(errs, w.enc.Close())
	}
	if w.f != nil {
		errs = append(errs, w.f.Close())
	}
	w.w, w.enc, w.f = nil, nil, nil
	w.curDay = ""
	return errors.Join(errs...)
}

func (w *JSONLZstdWriter) pathFor(day string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s%s", w.prefix, day, fileSuffix))
}

// AuditEntry records one persistence operation performed on a grid file.
type AuditEntry struct {
	Time   string         `json:"time"`
	Op     string         `json:"op"`
	Path   string         `json:"path"`
	Dims   [3]uint32      `json:"dims"`
	Cells  int            `json:"cells"`
	Digest string         `json:"digest,omitempty"`
	Counts map[string]int `json:"counts,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// NewAuditEntry fills an entry from g. g may be nil when the operation failed
// before a grid existed.
func NewAuditEntry(op, path string, g *grid.Grid, opErr error) AuditEntry {
	e := AuditEntry{
		Time: time.Now().UTC().Format(time.RFC3339Nano),
		Op:   op,
		Path: path,
	}
	if g != nil {
		x, y, z := g.Dims()
		e.Dims = [3]uint32{x, y, z}
		e.Cells = g.Len()
		d := g.Digest()
		e.Digest = hex.EncodeToString(d[:])
		e.Counts = map[string]int{}
		for v, n := range g.Histogram() {
			e.Counts[v.String()] = n
		}
	}
	if opErr != nil {
		e.Error = opErr.Error()
	}
	return e
}

type AuditLogger struct{ w *JSONLZstdWriter }

func NewAuditLogger(dir string) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(dir, "audit")}
}

func (l *AuditLogger) WriteAudit(e AuditEntry) error { return l.w.Write(e) }
func (l *AuditLogger) Close() error                  { return l.w.Close() }

// ReadAudit returns every entry under dir, oldest file first.
func ReadAudit(dir string) ([]AuditEntry, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "audit-") && strings.HasSuffix(e.Name(), fileSuffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []AuditEntry
	for _, name := range names {
		got, err := readAuditFile(filepath.Join(dir, name))
		if err != nil {
			return out, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, got...)
	}
	return out, nil
}

func readAuditFile(path string) ([]AuditEntry, error) {
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

	var out []AuditEntry
	jd := json.NewDecoder(dec)
	for {
		var e AuditEntry
		if err := jd.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, e)
	}
}
