package secrets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Output file names, relative to the output directory.
const (
	SecretsFile = "secrets.json"
	BytesFile   = "secretBytes.json"
	DictFile    = "secretDict.json"
	RawFile     = "captures.json"
)

// Writer persists views under a directory of an afero filesystem.
type Writer struct {
	fs  afero.Fs
	dir string
	log *zap.Logger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(fs afero.Fs, dir string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{fs: fs, dir: dir, log: log}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write stores the plain list pretty-printed and the code point views compact.
func (w *Writer) Write(v Views) error {
	if err := w.ensureDir(); err != nil {
		return err
	}
	if err := w.writeJSON(SecretsFile, v.Secrets, true); err != nil {
		return err
	}
	w.log.Info("Wrote plain secrets", zap.String("path", w.path(SecretsFile)))

	if err := w.writeJSON(BytesFile, v.Bytes, false); err != nil {
		return err
	}
	w.log.Info("Wrote secret bytes array", zap.String("path", w.path(BytesFile)))

	if err := w.writeJSON(DictFile, v.Dict, false); err != nil {
		return err
	}
	w.log.Info("Wrote secret bytes dict", zap.String("path", w.path(DictFile)))
	return nil
}

// WriteRaw stores the unprocessed capture payload so it can be summarized again later.
func (w *Writer) WriteRaw(payload []byte) error {
	if err := w.ensureDir(); err != nil {
		return err
	}
	if err := afero.WriteFile(w.fs, w.path(RawFile), payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", RawFile, err)
	}
	w.log.Info("Wrote raw captures", zap.String("path", w.path(RawFile)))
	return nil
}

func (w *Writer) ensureDir() error {
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", w.dir, err)
	}
	w.log.Debug("Created/verified output directory", zap.String("dir", w.dir))
	return nil
}

func (w *Writer) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *Writer) writeJSON(name string, v interface{}, pretty bool) error {
	data, err := encodeJSON(v, pretty)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := afero.WriteFile(w.fs, w.path(name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// encodeJSON marshals v without HTML escaping and without a trailing newline.
func encodeJSON(v interface{}, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
