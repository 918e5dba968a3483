package archive

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

// Row is the flattened structure for Parquet storage. Payloads are stored
// as JSON since their shape differs per table.
type Row struct {
	BatchID      string `parquet:"batch_id,snappy,dict"`
	Workspace    string `parquet:"workspace,snappy,dict"`
	Table        string `parquet:"table,snappy,dict"`
	Seq          int64  `parquet:"seq"`
	ReceivedAtMS int64  `parquet:"received_at_ms"`
	PayloadJSON  string `parquet:"payload_json,snappy"`

	// Partition columns (for Hive partitioning)
	Year  int `parquet:"year,dict"`
	Month int `parquet:"month,dict"`
	Day   int `parquet:"day,dict"`
	Hour  int `parquet:"hour,dict"`
}

// Object is an encoded batch ready for upload.
type Object struct {
	Data            []byte
	ContentType     string
	ContentEncoding string
	Extension       string
}

// Rows converts a batch into rows, one per payload, in batch order.
func Rows(batchID, workspace, table string, at time.Time, batch []any) ([]Row, error) {
	at = at.UTC()
	rows := make([]Row, 0, len(batch))
	for i, payload := range batch {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload %d: %w", i, err)
		}
		rows = append(rows, Row{
			BatchID:      batchID,
			Workspace:    workspace,
			Table:        table,
			Seq:          int64(i),
			ReceivedAtMS: at.UnixMilli(),
			PayloadJSON:  string(data),
			Year:         at.Year(),
			Month:        int(at.Month()),
			Day:          at.Day(),
			Hour:         at.Hour(),
		})
	}
	return rows, nil
}

// Encoder turns rows into an Object.
type Encoder interface {
	Encode(rows []Row) (Object, error)
}

// NewEncoder returns the encoder for format.
func NewEncoder(format string, parquetCfg ParquetConfig) (Encoder, error) {
	switch format {
	case FormatParquet, "":
		return NewParquetWriter(parquetCfg), nil
	case FormatJSONLines:
		return JSONLinesWriter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ParquetWriter handles writing rows to Parquet format.
type ParquetWriter struct {
	config ParquetConfig
}

// NewParquetWriter creates a new Parquet writer.
func NewParquetWriter(cfg ParquetConfig) *ParquetWriter {
	return &ParquetWriter{
		config: cfg,
	}
}

// Encode writes rows to Parquet format.
func (w *ParquetWriter) Encode(rows []Row) (Object, error) {
	if len(rows) == 0 {
		return Object{}, ErrNoRowsToWrite
	}

	var buf bytes.Buffer

	writer := parquet.NewGenericWriter[Row](&buf,
		parquet.Compression(w.compressionCodec()),
		parquet.CreatedBy("relogs-agent", "1.0.0", ""),
	)

	if _, err := writer.Write(rows); err != nil {
		return Object{}, fmt.Errorf("failed to write rows: %w", err)
	}

	if err := writer.Close(); err != nil {
		return Object{}, fmt.Errorf("failed to close writer: %w", err)
	}

	return Object{
		Data:        buf.Bytes(),
		ContentType: "application/x-parquet",
		Extension:   "parquet",
	}, nil
}

func (w *ParquetWriter) compressionCodec() compress.Codec {
	switch w.config.Compression {
	case "gzip":
		return &parquet.Gzip
	case "zstd":
		return &parquet.Zstd
	case "none":
		return &parquet.Uncompressed
	default:
		return &parquet.Snappy
	}
}

// JSONLinesWriter writes one JSON row per line, gzipped.
type JSONLinesWriter struct{}

// Encode writes rows as gzipped JSON lines.
func (JSONLinesWriter) Encode(rows []Row) (Object, error) {
	if len(rows) == 0 {
		return Object{}, ErrNoRowsToWrite
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	enc := json.NewEncoder(zw)

	for _, row := range rows {
		line := struct {
			BatchID    string          `json:"batch_id"`
			Workspace  string          `json:"workspace"`
			Table      string          `json:"table"`
			Seq        int64           `json:"seq"`
			ReceivedAt int64           `json:"received_at_ms"`
			Payload    json.RawMessage `json:"payload"`
		}{row.BatchID, row.Workspace, row.Table, row.Seq, row.ReceivedAtMS, json.RawMessage(row.PayloadJSON)}

		if err := enc.Encode(line); err != nil {
			return Object{}, fmt.Errorf("failed to write row %d: %w", row.Seq, err)
		}
	}

	if err := zw.Close(); err != nil {
		return Object{}, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return Object{
		Data:            buf.Bytes(),
		ContentType:     "application/x-ndjson",
		ContentEncoding: "gzip",
		Extension:       "jsonl.gz",
	}, nil
}
