package rowcodec

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/kasuganosora/histore/pkg/archiverow"
	"github.com/kasuganosora/histore/pkg/timestamp"
)

type archiveRowWire struct {
	Key   []any                      `json:"key"`
	Pos   [][2]json.RawMessage       `json:"pos"`
	Cells map[string][][2]json.RawMessage `json:"cells"`
}

// EncodeArchiveRow renders row as the ndjson object record from spec.md
// §6: {"key": ..., "pos": [[value, timestamp], ...], "cells": {"0": [[value,
// timestamp], ...]}}.
func EncodeArchiveRow(row *archiverow.Row) ([]byte, error) {
	pos := make([][2]json.RawMessage, len(row.Positions))
	for i, p := range row.Positions {
		valJSON, err := json.Marshal(p.Position)
		if err != nil {
			return nil, err
		}
		tsJSON, err := json.Marshal(p.TS.String())
		if err != nil {
			return nil, err
		}
		pos[i] = [2]json.RawMessage{valJSON, tsJSON}
	}

	cells := make(map[string][][2]json.RawMessage, len(row.Values))
	// deterministic column iteration order for reproducible output.
	colIDs := make([]int, 0, len(row.Values))
	for col := range row.Values {
		colIDs = append(colIDs, col)
	}
	sort.Ints(colIDs)
	for _, col := range colIDs {
		entries := row.Values[col]
		encoded := make([][2]json.RawMessage, len(entries))
		for i, e := range entries {
			v, err := encodeValue(e.Value)
			if err != nil {
				return nil, fmt.Errorf("rowcodec: encode column %d: %w", col, err)
			}
			valJSON, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			tsJSON, err := json.Marshal(e.TS.String())
			if err != nil {
				return nil, err
			}
			encoded[i] = [2]json.RawMessage{valJSON, tsJSON}
		}
		cells[strconv.Itoa(col)] = encoded
	}

	wire := archiveRowWire{Key: EncodeKey(row.Key), Pos: pos, Cells: cells}
	return json.Marshal(wire)
}

// DecodeArchiveRow reverses EncodeArchiveRow.
func DecodeArchiveRow(line []byte) (*archiverow.Row, error) {
	var wire archiveRowWire
	if err := json.Unmarshal(line, &wire); err != nil {
		return nil, fmt.Errorf("rowcodec: decode archive row: %w", err)
	}

	key, err := DecodeKey(wire.Key)
	if err != nil {
		return nil, err
	}

	positions := make([]archiverow.PositionEntry, len(wire.Pos))
	for i, pair := range wire.Pos {
		var pos int
		if err := json.Unmarshal(pair[0], &pos); err != nil {
			return nil, fmt.Errorf("rowcodec: decode position value: %w", err)
		}
		ts, err := decodeTimestamp(pair[1])
		if err != nil {
			return nil, err
		}
		positions[i] = archiverow.PositionEntry{Position: pos, TS: ts}
	}

	values := make(map[int][]archiverow.ValueEntry, len(wire.Cells))
	for colStr, entries := range wire.Cells {
		colID, err := strconv.Atoi(colStr)
		if err != nil {
			return nil, fmt.Errorf("rowcodec: bad column id %q: %w", colStr, err)
		}
		decoded := make([]archiverow.ValueEntry, len(entries))
		for i, pair := range entries {
			var raw any
			if err := json.Unmarshal(pair[0], &raw); err != nil {
				return nil, fmt.Errorf("rowcodec: decode value: %w", err)
			}
			v, err := decodeValue(raw)
			if err != nil {
				return nil, err
			}
			ts, err := decodeTimestamp(pair[1])
			if err != nil {
				return nil, err
			}
			decoded[i] = archiverow.ValueEntry{Value: v, TS: ts}
		}
		values[colID] = decoded
	}

	return &archiverow.Row{Key: key, Positions: positions, Values: values}, nil
}

func decodeTimestamp(raw json.RawMessage) (timestamp.Timestamp, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return timestamp.Timestamp{}, fmt.Errorf("rowcodec: decode timestamp: %w", err)
	}
	return timestamp.Parse(s)
}
