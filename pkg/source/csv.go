package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/ruslano69/tdtp-bulk/pkg/config"
)

// ReadCSV reads every record of a delimited text file.
// Rows may have fewer fields than the header; missing cells are empty.
// Files ending in .gz or .zst/.zstd are decompressed on the fly.
func ReadCSV(path, delimiter string) (Records, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompress(f, (&config.SourceConfig{Path: path}).Compression())
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return parseCSV(r, delimiter)
}

// decompress wraps r with the decoder for compression ("" means none).
func decompress(r io.Reader, compression string) (io.Reader, func(), error) {
	switch compression {
	case "gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case "zstd":
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		return zr, zr.Close, nil
	case "":
		return r, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported compression '%s'", compression)
}

func parseCSV(r io.Reader, delimiter string) (Records, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	if delimiter != "" {
		reader.Comma, _ = utf8.DecodeRuneInString(delimiter)
	}

	var records Records
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}
