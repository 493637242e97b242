package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/sheetbridge/internal/entity"
	"github.com/roach88/sheetbridge/internal/ir"
)

// marshalData converts a payload to canonical JSON TEXT for storage.
func marshalData(data ir.IRObject) (string, error) {
	if data == nil {
		data = ir.IRObject{}
	}
	b, err := ir.MarshalCanonical(data)
	if err != nil {
		return "", fmt.Errorf("marshal data: %w", err)
	}
	return string(b), nil
}

// unmarshalData parses canonical JSON TEXT into a payload.
// IRObject.UnmarshalJSON decodes numbers via json.Number, so integers
// above 2^53 survive the round trip.
func unmarshalData(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	return obj, nil
}

// marshalSnapshot encodes a full snapshot as the commit payload.
// Snapshots that cannot be encoded canonically (null values) are stored as
// an empty object; the rejection reason already records why.
func marshalSnapshot(s entity.Snapshot) string {
	data := s.Data
	if data == nil {
		data = ir.IRObject{}
	}
	b, err := ir.MarshalCanonical(ir.IRObject{
		"name": ir.IRString(s.Name),
		"img":  ir.IRString(s.Img),
		"data": data,
	})
	if err != nil {
		return "{}"
	}
	return string(b)
}

// unmarshalSnapshot decodes a commit payload.
func unmarshalSnapshot(payload string) (entity.Snapshot, error) {
	obj, err := unmarshalData(payload)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	var s entity.Snapshot
	if name, ok := obj["name"].(ir.IRString); ok {
		s.Name = string(name)
	}
	if img, ok := obj["img"].(ir.IRString); ok {
		s.Img = string(img)
	}
	if data, ok := obj["data"].(ir.IRObject); ok {
		s.Data = data
	} else {
		s.Data = ir.IRObject{}
	}
	return s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
