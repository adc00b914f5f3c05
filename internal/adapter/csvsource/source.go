// Package csvsource reads the yearly hotspot CSV exports from disk.
package csvsource

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/couchcryptid/hotspot-etl/internal/domain"
	"golang.org/x/text/encoding/charmap"
)

// Encodings reported on decoded tables.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "iso-8859-1"
)

// ListFiles returns the files in dir matching pattern, sorted by name.
// An empty result is domain.ErrNoInput.
func ListFiles(dir, pattern string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	files := paths[:0]
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no %s in %s", domain.ErrNoInput, pattern, dir)
	}
	sort.Strings(files)
	return files, nil
}

// Reader decodes source files into raw tables.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a Reader.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger}
}

// List returns the source files in dir matching pattern. See ListFiles.
func (r *Reader) List(dir, pattern string) ([]string, error) {
	return ListFiles(dir, pattern)
}

// ReadFile loads path as a raw table tagged with its base name.
func (r *Reader) ReadFile(path string) (domain.RawTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("read %s: %w", path, err)
	}

	text, encoding, err := Decode(data)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("decode %s: %w", path, err)
	}

	table, err := Parse(bytes.NewReader(text))
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("parse %s: %w", path, err)
	}
	table.Source = filepath.Base(path)
	table.Encoding = encoding

	r.logger.Info("source file read",
		"source", table.Source,
		"encoding", encoding,
		"columns", len(table.Header),
		"rows", len(table.Records),
	)
	return table, nil
}

// Decode returns data as UTF-8. Valid UTF-8 is returned unchanged; anything
// else is decoded as ISO-8859-1, which maps every byte to a rune.
func Decode(data []byte) ([]byte, string, error) {
	if utf8.Valid(data) {
		return data, EncodingUTF8, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", err
	}
	return out, EncodingLatin1, nil
}

// Parse reads comma-separated records with a header row. Header names are
// normalized and made unique; short rows leave trailing columns missing and
// empty cells are treated as missing.
func Parse(in io.Reader) (domain.RawTable, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return domain.RawTable{}, errors.New("missing header row")
		}
		return domain.RawTable{}, fmt.Errorf("read header: %w", err)
	}
	header = uniqueHeader(header)

	var records []domain.RawRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.RawTable{}, fmt.Errorf("line %d: %w", line, err)
		}
		rec := make(domain.RawRecord, len(header))
		for i, v := range row {
			if i >= len(header) {
				break
			}
			if v != "" {
				rec[header[i]] = v
			}
		}
		records = append(records, rec)
	}

	return domain.RawTable{Header: header, Records: records}, nil
}

// uniqueHeader normalizes names and suffixes repeats with ".1", ".2", ...
func uniqueHeader(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		name := domain.NormalizeHeader(h)
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}
