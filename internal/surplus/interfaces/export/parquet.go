package export

import (
	"bytes"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	surplus "energy-surplus/internal/surplus/domain"
)

type parquetRow struct {
	Country    string  `parquet:"name=country_code,type=BYTE_ARRAY,convertedtype=UTF8"`
	Hour       int64   `parquet:"name=hour,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	Generation float64 `parquet:"name=generation,type=DOUBLE"`
	Load       float64 `parquet:"name=load,type=DOUBLE"`
	Surplus    float64 `parquet:"name=surplus,type=DOUBLE"`
}

// BuildSurplusParquet encodes rows as a snappy-compressed Parquet file.
func BuildSurplusParquet(rows []surplus.SurplusRow) (data []byte, err error) {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(parquetRow), 1)
	if err != nil {
		return nil, fmt.Errorf("export: parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		record := parquetRow{
			Country:    string(row.Country),
			Hour:       row.Hour.UTC().UnixMilli(),
			Generation: row.Generation,
			Load:       row.Load,
			Surplus:    row.Surplus,
		}
		if err := pw.Write(record); err != nil {
			return nil, fmt.Errorf("export: parquet write: %w", err)
		}
	}

	// WriteStop can panic on corrupted writer state.
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("export: parquet stop: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("export: parquet stop: %w", err)
	}
	return buf.Bytes(), nil
}
