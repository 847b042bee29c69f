// This file provides the on-disk encodings of a record sequence: a single
// JSON array (the default) or JSONL, one object per line.
package jsonfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mesh-intelligence/ledger/pkg/types"
)

// emptyContent returns what a freshly created store file holds.
func emptyContent(format string) []byte {
	if format == types.FormatJSONL {
		return nil
	}
	return []byte("[]")
}

// encodeRecords serializes records in the given format.
func encodeRecords(format string, records []types.Record) ([]byte, error) {
	if format == types.FormatJSONL {
		return encodeJSONL(records)
	}
	if records == nil {
		records = []types.Record{}
	}
	return json.Marshal(records)
}

// decodeRecords parses a store file. Empty or whitespace-only content is an
// empty sequence.
func decodeRecords(format string, data []byte) ([]types.Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []types.Record{}, nil
	}
	if format == types.FormatJSONL {
		return decodeJSONL(data)
	}
	return decodeJSONArray(data)
}

func decodeJSONArray(data []byte) ([]types.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("expected a JSON array, got %v", tok)
	}

	records := []types.Record{}
	for dec.More() {
		var rec types.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after record array")
	}
	return records, nil
}

func decodeJSONL(data []byte) ([]types.Record, error) {
	records := []types.Record{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec types.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func encodeJSONL(records []types.Record) ([]byte, error) {
	var buf bytes.Buffer
	for i, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
