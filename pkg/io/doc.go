// Package io reads measurement sets and writes packed layouts as JSON.
//
// # Measurement Format
//
// A measurement file lists items with their measured size:
//
//	{
//	  "items": [
//	    {"id": "item1", "width": 100, "height": 100},
//	    {"id": "item2", "width": 100, "height": 50}
//	  ]
//	}
//
// A bare array of items is accepted as well. Every item needs a non-empty
// id; ids must be unique within a file. Sizes that are zero, negative or
// missing are kept as "not yet measured" and skipped by the packer, so a
// host can export its measurement set mid-load.
//
// # Layout Format
//
// [WriteLayout] emits the packing parameters, the grid extent, the final
// extent of each column and one placement per item, sorted by id:
//
//	{
//	  "columns": 2,
//	  "spacing": 10,
//	  "axis": "vertical",
//	  "extent": 210,
//	  "column_extents": [220, 150],
//	  "placements": [
//	    {"id": "item1", "x": 0, "y": 0, "width": 100, "height": 100}
//	  ]
//	}
//
// Column extents include the trailing spacing after each column's last item,
// which is why the largest of them exceeds the extent by exactly the spacing.
package io
