package io

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/matzehuels/waterfall/pkg/errors"
	"github.com/matzehuels/waterfall/pkg/waterfall"
)

// Placement is one placed item in a layout document.
type Placement struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LayoutDocument is the serialized form of a packed layout.
type LayoutDocument struct {
	Columns       int            `json:"columns"`
	Spacing       float64        `json:"spacing"`
	Axis          waterfall.Axis `json:"axis"`
	CrossExtent   float64        `json:"cross_extent,omitempty"`
	Extent        float64        `json:"extent"`
	ColumnExtents []float64      `json:"column_extents"`
	Placements    []Placement    `json:"placements"`
}

// NewLayoutDocument flattens l into its serialized form with placements
// sorted by id.
func NewLayoutDocument(l *waterfall.Layout[string]) LayoutDocument {
	doc := LayoutDocument{
		Columns:       l.Config.Columns,
		Spacing:       l.Config.Spacing,
		Axis:          l.Config.Axis,
		CrossExtent:   l.Config.CrossExtent,
		Extent:        l.Extent,
		ColumnExtents: l.Columns,
		Placements:    make([]Placement, 0, l.Len()),
	}
	if doc.ColumnExtents == nil {
		doc.ColumnExtents = []float64{}
	}

	for _, id := range slices.Sorted(maps.Keys(l.Frames)) {
		r := l.Frames[id]
		doc.Placements = append(doc.Placements, Placement{
			ID: id, X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
		})
	}
	return doc
}

// Config returns the packing configuration recorded in the document.
func (d LayoutDocument) Config() waterfall.Config {
	return waterfall.Config{
		Columns:     d.Columns,
		Spacing:     d.Spacing,
		Axis:        d.Axis,
		CrossExtent: d.CrossExtent,
	}
}

// Layout rebuilds the in-memory layout described by the document.
func (d LayoutDocument) Layout() *waterfall.Layout[string] {
	l := &waterfall.Layout[string]{
		Config:     d.Config(),
		Placements: make(map[string]waterfall.Point, len(d.Placements)),
		Frames:     make(map[string]waterfall.Rect, len(d.Placements)),
		Extent:     d.Extent,
	}
	if len(d.ColumnExtents) > 0 {
		l.Columns = slices.Clone(d.ColumnExtents)
	}
	for _, p := range d.Placements {
		l.Placements[p.ID] = waterfall.Point{X: p.X, Y: p.Y}
		l.Frames[p.ID] = waterfall.Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
	}
	return l
}

// WriteLayout encodes l as JSON and writes it to w.
func WriteLayout(l *waterfall.Layout[string], w io.Writer) error {
	if err := encode(w, NewLayoutDocument(l)); err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	return nil
}

// ExportLayout writes l to the file at path, replacing any existing file.
func ExportLayout(l *waterfall.Layout[string], path string) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteLayout(l, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadLayout decodes a layout document written by WriteLayout.
func ReadLayout(r io.Reader) (LayoutDocument, error) {
	var doc LayoutDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return LayoutDocument{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode layout")
	}
	return doc, nil
}
