// Package waterfall packs variable-size items into a multi-column
// waterfall (masonry) layout.
//
// # Packing
//
// [Pack] is a pure function. It visits items in ascending key order and puts
// each one into the column with the smallest running extent. Ties go to the
// lowest column index. It returns a [Layout] holding one offset per placed
// item plus the total extent along the scroll axis:
//
//	m := waterfall.Measurements[string]{
//	    "a": {Width: 100, Height: 100},
//	    "b": {Width: 100, Height: 50},
//	}
//	l := waterfall.Pack(m, waterfall.Config{Columns: 2, Spacing: 10})
//	fmt.Println(l.Placements["b"], l.Extent) // {110 0} 100
//
// Sizes with a zero, negative or non-finite component are treated as not
// yet measured and receive no placement. A column count below one yields an
// empty layout. Horizontal grids swap the roles of width and height.
//
// # Debounced recomputation
//
// A [Controller] sits between a host view system and [Pack]. The host calls
// [Controller.Report] with every measured size it knows on each layout pass.
// Batches that change nothing are ignored. A changing batch cancels any
// pending recomputation and schedules a new one after a short debounce
// window ([DefaultDebounce]). The recomputation packs a private snapshot off
// the caller's goroutine and publishes only when it is still the latest one
// scheduled:
//
//	ctl := waterfall.NewController[string](waterfall.Config{Columns: 3, Spacing: 8})
//	defer ctl.Close()
//
//	unwatch := ctl.Watch(func(l *waterfall.Layout[string]) {
//	    applyOffsets(l.Placements)
//	    resize(l.Extent)
//	})
//	defer unwatch()
//
//	ctl.Report(sizes)
//
// Published layouts are immutable and replace each other atomically, so
// [Controller.Current] never pairs placements from one snapshot with an
// extent from another.
package waterfall
