// Package intake reads delivered measurement files from the intake directory.
package intake

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dylanvkmns/rqmProject/internal/domain"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Delimiter separates fields in delivered files.
const Delimiter = ';'

// Dir is a directory of pending measurement files.
type Dir struct {
	path   string
	enc    encoding.Encoding
	logger *slog.Logger
}

// NewDir creates a reader for dir. encodingName is any WHATWG label known to
// x/text (utf-8, windows-1252, iso-8859-1, ...).
func NewDir(dir, encodingName string, logger *slog.Logger) (*Dir, error) {
	enc, err := htmlindex.Get(encodingName)
	if err != nil {
		return nil, fmt.Errorf("source encoding %q: %w", encodingName, err)
	}
	return &Dir{path: dir, enc: enc, logger: logger}, nil
}

// Path returns the intake directory.
func (d *Dir) Path() string { return d.path }

// List returns the regular, non-hidden files in the directory, sorted by name.
// A missing directory yields no files.
func (d *Dir) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		d.logger.Debug("intake directory missing", "dir", d.path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list intake %s: %w", d.path, err)
	}

	var files []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(d.path, e.Name()))
	}
	slices.Sort(files)
	return files, nil
}

// Read loads one file. A missing file is reported with an error wrapping
// fs.ErrNotExist.
func (d *Dir) Read(_ context.Context, path string) (domain.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Parse(filepath.Base(path), f, d.enc)
}

// Remove deletes a consumed file.
func (d *Dir) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Parse splits a delimited stream into a header and numbered records. Fields
// are kept verbatim; all coercion happens during normalization. A nil enc
// means UTF-8. A leading byte order mark is honored and stripped.
func Parse(source string, r io.Reader, enc encoding.Encoding) (domain.RawTable, error) {
	if enc == nil {
		enc = unicode.UTF8
	}
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())))
	reader.Comma = Delimiter
	// Column counts are checked against the schema, not against the header.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	table := domain.RawTable{Source: source}
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.RawTable{}, fmt.Errorf("parse %s: %w", source, err)
		}
		line, _ := reader.FieldPos(0)
		if table.Header == nil {
			table.Header = fields
			continue
		}
		table.Records = append(table.Records, domain.RawRecord{Line: line, Fields: fields})
	}
	return table, nil
}
