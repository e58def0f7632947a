package waterfall_test

import (
	"fmt"
	"time"

	"github.com/matzehuels/waterfall/pkg/waterfall"
)

func ExamplePack() {
	m := waterfall.Measurements[string]{
		"item1": {Width: 100, Height: 100},
		"item2": {Width: 100, Height: 50},
		"item3": {Width: 100, Height: 80},
		"item4": {Width: 100, Height: 30},
		"item5": {Width: 100, Height: 60},
	}

	l := waterfall.Pack(m, waterfall.Config{Columns: 2, Spacing: 10})

	for _, id := range m.Keys() {
		p := l.Placements[id]
		fmt.Printf("%s: x=%v y=%v\n", id, p.X, p.Y)
	}
	fmt.Println("Extent:", l.Extent)
	// Output:
	// item1: x=0 y=0
	// item2: x=110 y=0
	// item3: x=110 y=60
	// item4: x=0 y=110
	// item5: x=0 y=150
	// Extent: 210
}

func ExamplePack_horizontal() {
	m := waterfall.Measurements[int]{
		1: {Width: 120, Height: 40},
		2: {Width: 60, Height: 40},
		3: {Width: 90, Height: 40},
	}

	l := waterfall.Pack(m, waterfall.Config{Columns: 2, Spacing: 4, Axis: waterfall.Horizontal})

	for _, id := range m.Keys() {
		fmt.Printf("%d: %+v\n", id, l.Placements[id])
	}
	fmt.Println("Extent:", l.Extent)
	// Output:
	// 1: {X:0 Y:0}
	// 2: {X:0 Y:44}
	// 3: {X:64 Y:44}
	// Extent: 154
}

func ExampleController() {
	ctl := waterfall.NewController(waterfall.Config{Columns: 3, Spacing: 8},
		waterfall.WithDebounce[string](10*time.Millisecond))
	defer ctl.Close()

	done := make(chan struct{})
	ctl.Watch(func(l *waterfall.Layout[string]) {
		fmt.Println("placed:", l.Len(), "extent:", l.Extent)
		close(done)
	})

	ctl.Report(map[string]waterfall.Size{
		"a": {Width: 80, Height: 120},
		"b": {Width: 80, Height: 60},
		"c": {Width: 80, Height: 90},
		"d": {Width: 80, Height: 40},
	})
	<-done
	// Output:
	// placed: 4 extent: 120
}
