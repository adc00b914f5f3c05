// Package parquet persists the consolidated hotspot dataset as a
// snappy-compressed Parquet file and reads it back.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/array"
	"github.com/apache/arrow/go/v16/arrow/memory"
	pq "github.com/apache/arrow/go/v16/parquet"
	"github.com/apache/arrow/go/v16/parquet/compress"
	"github.com/apache/arrow/go/v16/parquet/pqarrow"

	"github.com/couchcryptid/hotspot-etl/internal/domain"
)

// batchSize bounds the rows per written record batch.
const batchSize = 64 * 1024

var timestampUTC = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

// Schema returns the Arrow schema for a dataset with the given extra columns.
func Schema(extraColumns []string) *arrow.Schema {
	fields := []arrow.Field{
		{Name: domain.ColDate, Type: timestampUTC},
		{Name: domain.ColYear, Type: arrow.PrimitiveTypes.Int32},
		{Name: domain.ColMonth, Type: arrow.PrimitiveTypes.Int32},
		{Name: domain.ColYearMonth, Type: arrow.BinaryTypes.String},
		{Name: domain.ColDay, Type: arrow.FixedWidthTypes.Date32},
		{Name: domain.ColWeekISO, Type: arrow.PrimitiveTypes.Int32},
		{Name: domain.ColWeekday, Type: arrow.PrimitiveTypes.Int32},
		{Name: domain.ColLat, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: domain.ColLon, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: domain.ColState, Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: domain.ColMunicipality, Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: domain.ColBiome, Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: domain.ColBiomeState, Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: domain.ColSource, Type: arrow.BinaryTypes.String},
	}
	for _, name := range extraColumns {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

// Store reads and writes the consolidated dataset at a fixed path.
type Store struct {
	path string
}

// NewStore creates a Store for path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the dataset location.
func (s *Store) Path() string { return s.path }

// Write replaces the stored dataset with ds.
func (s *Store) Write(ctx context.Context, ds domain.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return Write(s.path, ds)
}

// Read loads the stored dataset.
func (s *Store) Read(ctx context.Context) (domain.Dataset, error) {
	return Read(ctx, s.path)
}

// Write replaces the file at path with ds. The parent directory is created
// if needed and the file is written under a temporary name first.
func Write(path string, ds domain.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := encode(tmp, ds); err != nil {
		_ = tmp.Close()
		return err
	}
	// The file writer closes its sink.
	if err := tmp.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

func encode(f *os.File, ds domain.Dataset) error {
	schema := Schema(ds.ExtraColumns)
	props := pq.NewWriterProperties(pq.WithCompression(compress.Codecs.Snappy))
	fw, err := pqarrow.NewFileWriter(schema, f, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}

	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for start := 0; start < len(ds.Records); start += batchSize {
		end := min(start+batchSize, len(ds.Records))
		for _, h := range ds.Records[start:end] {
			appendRow(b, h, ds.ExtraColumns)
		}
		rec := b.NewRecord()
		err := fw.Write(rec)
		rec.Release()
		if err != nil {
			_ = fw.Close()
			return fmt.Errorf("write record batch: %w", err)
		}
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func appendRow(b *array.RecordBuilder, h domain.Hotspot, extras []string) {
	b.Field(0).(*array.TimestampBuilder).Append(arrow.Timestamp(h.Date.UTC().UnixMicro()))
	b.Field(1).(*array.Int32Builder).Append(int32(h.Year))
	b.Field(2).(*array.Int32Builder).Append(int32(h.Month))
	b.Field(3).(*array.StringBuilder).Append(h.YearMonth)
	b.Field(4).(*array.Date32Builder).Append(arrow.Date32FromTime(h.Day))
	b.Field(5).(*array.Int32Builder).Append(int32(h.ISOWeek))
	b.Field(6).(*array.Int32Builder).Append(int32(h.Weekday))

	lat := b.Field(7).(*array.Float64Builder)
	lon := b.Field(8).(*array.Float64Builder)
	if h.HasCoords {
		lat.Append(h.Lat)
		lon.Append(h.Lon)
	} else {
		lat.AppendNull()
		lon.AppendNull()
	}

	appendOptional(b.Field(9).(*array.StringBuilder), h.State)
	appendOptional(b.Field(10).(*array.StringBuilder), h.Municipality)
	appendOptional(b.Field(11).(*array.StringBuilder), h.Biome)
	appendOptional(b.Field(12).(*array.StringBuilder), h.BiomeState)
	b.Field(13).(*array.StringBuilder).Append(h.Source)

	for i, name := range extras {
		sb := b.Field(14 + i).(*array.StringBuilder)
		if v, ok := h.Extra[name]; ok {
			sb.Append(v)
		} else {
			sb.AppendNull()
		}
	}
}

func appendOptional(sb *array.StringBuilder, v string) {
	if v == "" {
		sb.AppendNull()
		return
	}
	sb.Append(v)
}

// Read loads the dataset at path. Calendar fields are recomputed from the
// stored date rather than trusted from the file.
func Read(ctx context.Context, path string) (domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	mem := memory.NewGoAllocator()
	tbl, err := pqarrow.ReadTable(ctx, f, pq.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("read parquet %s: %w", path, err)
	}
	defer tbl.Release()

	cols, err := locateColumns(tbl.Schema())
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("%s: %w", path, err)
	}

	ds := domain.Dataset{
		Records:      make([]domain.Hotspot, 0, tbl.NumRows()),
		ExtraColumns: cols.extraNames,
	}
	seenSource := make(map[string]bool)

	tr := array.NewTableReader(tbl, batchSize)
	defer tr.Release()
	for tr.Next() {
		if err := ctx.Err(); err != nil {
			return domain.Dataset{}, err
		}
		rec := tr.Record()
		rows, err := decodeRecord(rec, cols)
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("%s: %w", path, err)
		}
		for _, h := range rows {
			if !seenSource[h.Source] {
				seenSource[h.Source] = true
				ds.Sources = append(ds.Sources, h.Source)
			}
		}
		ds.Records = append(ds.Records, rows...)
	}
	return ds, nil
}

// columnIndex locates the known columns of a schema. Absent optional
// columns are -1.
type columnIndex struct {
	date, lat, lon, state, municipality, biome, biomeState, source int
	extraNames                                                   []string
	extraIdx                                                     []int
}

func locateColumns(schema *arrow.Schema) (columnIndex, error) {
	idx := columnIndex{date: -1, lat: -1, lon: -1, state: -1, municipality: -1, biome: -1, biomeState: -1, source: -1}
	for i, f := range schema.Fields() {
		switch f.Name {
		case domain.ColDate:
			idx.date = i
		case domain.ColLat:
			idx.lat = i
		case domain.ColLon:
			idx.lon = i
		case domain.ColState:
			idx.state = i
		case domain.ColMunicipality:
			idx.municipality = i
		case domain.ColBiome:
			idx.biome = i
		case domain.ColBiomeState:
			idx.biomeState = i
		case domain.ColSource:
			idx.source = i
		default:
			if !domain.IsDerivedColumn(f.Name) {
				idx.extraNames = append(idx.extraNames, f.Name)
				idx.extraIdx = append(idx.extraIdx, i)
			}
		}
	}
	if idx.date < 0 {
		return idx, fmt.Errorf("column %q: %w", domain.ColDate, domain.ErrDateColumnNotFound)
	}
	return idx, nil
}

func decodeRecord(rec arrow.Record, idx columnIndex) ([]domain.Hotspot, error) {
	dates, ok := rec.Column(idx.date).(*array.Timestamp)
	if !ok {
		return nil, fmt.Errorf("column %q has type %s", domain.ColDate, rec.Column(idx.date).DataType())
	}
	unit := rec.Schema().Field(idx.date).Type.(*arrow.TimestampType).Unit

	lat := float64Column(rec, idx.lat)
	lon := float64Column(rec, idx.lon)
	state := stringColumn(rec, idx.state)
	municipality := stringColumn(rec, idx.municipality)
	biome := stringColumn(rec, idx.biome)
	biomeState := stringColumn(rec, idx.biomeState)
	source := stringColumn(rec, idx.source)
	extras := make([]*array.String, len(idx.extraIdx))
	for i, c := range idx.extraIdx {
		extras[i] = stringColumn(rec, c)
	}

	n := int(rec.NumRows())
	out := make([]domain.Hotspot, 0, n)
	for i := 0; i < n; i++ {
		if dates.IsNull(i) {
			continue
		}
		date := dates.Value(i).ToTime(unit).UTC()
		h := domain.Hotspot{
			Date:         date,
			Calendar:     domain.DeriveCalendar(date),
			State:        stringValue(state, i),
			Municipality: stringValue(municipality, i),
			Biome:        stringValue(biome, i),
			BiomeState:   stringValue(biomeState, i),
			Source:       stringValue(source, i),
		}
		if lat != nil && lon != nil && lat.IsValid(i) && lon.IsValid(i) {
			h.Lat, h.Lon, h.HasCoords = lat.Value(i), lon.Value(i), true
		}
		for j, col := range extras {
			if col == nil || col.IsNull(i) {
				continue
			}
			if h.Extra == nil {
				h.Extra = make(map[string]string, len(extras))
			}
			h.Extra[idx.extraNames[j]] = col.Value(i)
		}
		out = append(out, h)
	}
	return out, nil
}

func float64Column(rec arrow.Record, i int) *array.Float64 {
	if i < 0 {
		return nil
	}
	col, _ := rec.Column(i).(*array.Float64)
	return col
}

func stringColumn(rec arrow.Record, i int) *array.String {
	if i < 0 {
		return nil
	}
	col, _ := rec.Column(i).(*array.String)
	return col
}

func stringValue(col *array.String, i int) string {
	if col == nil || col.IsNull(i) {
		return ""
	}
	return col.Value(i)
}
