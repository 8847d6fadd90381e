package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"privatestarving.io/internal/sim/world"
)

// JSONLZstdWriter appends one JSON document per line to hourly zstd files under baseDir.
// Callers that carry their own timestamp use WriteAt so a late record lands in the hour it happened.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error { return w.WriteAt(time.Time{}, v) }

// WriteAt buckets v by at. A zero at means now.
func (w *JSONLZstdWriter) WriteAt(at time.Time, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if at.IsZero() {
		at = w.now()
	}
	hour := at.UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
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
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// AuditLogger writes audit JSONL entries (compressed).
type AuditLogger struct{ w *JSONLZstdWriter }

func NewAuditLogger(journalDir string) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(filepath.Join(journalDir, "audit"), "audit")}
}

// WriteAudit files e under the hour of its own ts, not the hour it reached the writer.
func (l *AuditLogger) WriteAudit(e world.AuditEntry) error {
	var at time.Time
	if e.Time > 0 {
		at = time.UnixMilli(e.Time)
	}
	return l.w.WriteAt(at, e)
}

func (l *AuditLogger) Close() error { return l.w.Close() }

// MultiAuditLogger fans one entry out to several sinks. The first error wins but every sink is tried.
type MultiAuditLogger []world.AuditLogger

func (m MultiAuditLogger) WriteAudit(e world.AuditEntry) error {
	var first error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.WriteAudit(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ReadAudit decodes every entry from the hourly audit files under journalDir, oldest file first.
func ReadAudit(journalDir string) ([]world.AuditEntry, error) {
	files, err := filepath.Glob(filepath.Join(journalDir, "audit", "audit-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	var out []world.AuditEntry
	for _, path := range files {
		entries, err := readAuditFile(path)
		if err != nil {
			return out, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		out = append(out, entries...)
	}
	return out, nil
}

func readAuditFile(path string) ([]world.AuditEntry, error) {
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

	var out []world.AuditEntry
	jd := json.NewDecoder(dec)
	for {
		var e world.AuditEntry
		if err := jd.Decode(&e); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
		out = append(out, e)
	}
}
