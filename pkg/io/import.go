package io

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/matzehuels/waterfall/pkg/errors"
	"github.com/matzehuels/waterfall/pkg/waterfall"
)

// Item is one entry of a measurement file.
type Item struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type measurementFile struct {
	Items []Item `json:"items"`
}

// ReadMeasurements decodes a measurement set from r.
//
// The input is either an object with an "items" array or a bare array of
// items. Items with invalid sizes are returned unchanged; the packer skips
// them. ReadMeasurements does not close r.
func ReadMeasurements(r io.Reader) (waterfall.Measurements[string], error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read measurements")
	}

	var items []Item
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &items)
	} else {
		var f measurementFile
		err = json.Unmarshal(trimmed, &f)
		items = f.Items
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode measurements")
	}

	return FromItems(items)
}

// FromItems converts decoded items into a measurement set, validating ids.
func FromItems(items []Item) (waterfall.Measurements[string], error) {
	m := make(waterfall.Measurements[string], len(items))
	for i, it := range items {
		if err := errors.ValidateItemID(it.ID); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidItem, err, "item %d", i)
		}
		if _, dup := m[it.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidItem, "duplicate item id %q", it.ID)
		}
		m[it.ID] = waterfall.Size{Width: it.Width, Height: it.Height}
	}
	return m, nil
}

// ImportMeasurements reads the measurement file at path.
func ImportMeasurements(path string) (waterfall.Measurements[string], error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer f.Close()

	m, err := ReadMeasurements(f)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	return m, nil
}

// WriteMeasurements encodes m as an items object, sorted by id.
func WriteMeasurements(m waterfall.Measurements[string], w io.Writer) error {
	out := measurementFile{Items: make([]Item, 0, len(m))}
	for _, id := range m.Keys() {
		s := m[id]
		out.Items = append(out.Items, Item{ID: id, Width: s.Width, Height: s.Height})
	}
	return encode(w, out)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
