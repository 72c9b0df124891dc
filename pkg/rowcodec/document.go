package rowcodec

import (
	"encoding/json"
	"fmt"

	"github.com/kasuganosora/histore/pkg/document"
)

// EncodeDocumentRow renders row as the line-delimited JSON array record
// from spec.md §6 (without the trailing newline).
func EncodeDocumentRow(row document.Row) ([]byte, error) {
	cells := make(map[string]any, len(row.Cells))
	for colID, v := range row.Cells {
		encoded, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("rowcodec: encode cell %d: %w", colID, err)
		}
		cells[fmt.Sprint(colID)] = encoded
	}
	record := []any{row.Position, EncodeKey(row.Key), cells}
	return json.Marshal(record)
}

// DecodeDocumentRow reverses EncodeDocumentRow.
func DecodeDocumentRow(line []byte) (document.Row, error) {
	var record [3]json.RawMessage
	if err := json.Unmarshal(line, &record); err != nil {
		return document.Row{}, fmt.Errorf("rowcodec: decode document row: %w", err)
	}

	var position int
	if err := json.Unmarshal(record[0], &position); err != nil {
		return document.Row{}, fmt.Errorf("rowcodec: decode position: %w", err)
	}

	var rawKey []any
	if err := json.Unmarshal(record[1], &rawKey); err != nil {
		return document.Row{}, fmt.Errorf("rowcodec: decode key: %w", err)
	}
	key, err := DecodeKey(rawKey)
	if err != nil {
		return document.Row{}, err
	}

	var rawCells map[string]any
	if err := json.Unmarshal(record[2], &rawCells); err != nil {
		return document.Row{}, fmt.Errorf("rowcodec: decode cells: %w", err)
	}
	cells := make(map[int]any, len(rawCells))
	for colStr, raw := range rawCells {
		var colID int
		if _, err := fmt.Sscan(colStr, &colID); err != nil {
			return document.Row{}, fmt.Errorf("rowcodec: bad column id %q: %w", colStr, err)
		}
		v, err := decodeValue(raw)
		if err != nil {
			return document.Row{}, err
		}
		cells[colID] = v
	}

	return document.Row{Position: position, Key: key, Cells: cells}, nil
}
