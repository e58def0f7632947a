// Package pkg provides the core libraries for Waterfall grid layouts.
//
// # Overview
//
// Waterfall places measured items into a fixed number of columns, always
// filling the currently shortest column. The pkg directory is organized into
// these areas:
//
//  1. [waterfall] - Domain logic (packing, debounced recomputation)
//  2. [pipeline] - Orchestration (options, caching runner, balance stats)
//  3. [cache] - Layout and chart caches (file, Redis, null)
//  4. [io] - Measurement and layout file formats
//  5. [chart] - Column fill charts (HTML, PNG)
//
// # Architecture
//
// The typical data flow through Waterfall:
//
//	items.json (id, width, height)
//	         ↓
//	    [io] package (import measurements)
//	         ↓
//	    [pipeline] package (validate options, look up cache)
//	         ↓
//	    [waterfall] package (pack)
//	         ↓
//	    layout JSON / chart / HTTP response
//
// # Quick Start
//
// Pack a measurement file:
//
//	m, _ := io.ImportMeasurements("items.json")
//	l := waterfall.Pack(m, waterfall.Config{Columns: 3, Spacing: 8})
//	_ = io.ExportLayout(&l, "items.layout.json")
//
// Keep a layout current while sizes arrive:
//
//	ctl := waterfall.NewController(waterfall.Config{Columns: 3})
//	defer ctl.Close()
//	ctl.Watch(func(l *waterfall.Layout[string]) { redraw(l) })
//	ctl.Report(waterfall.Measurements[string]{"a": {Width: 120, Height: 90}})
//
// # Main Packages
//
// [waterfall] - The packing algorithm and the [waterfall.Controller], which
// coalesces bursts of measurement reports into one recomputation and only
// publishes the latest result.
//
// [pipeline] - [pipeline.Options] with defaults and validation, the caching
// [pipeline.Runner] shared by the CLI and the HTTP server, and column balance
// statistics.
//
// [cache] - Content-addressed caches keyed by measurement hash and options.
// FileCache for the CLI, RedisCache for shared deployments, NullCache when
// caching is disabled.
//
// [io] - JSON formats for measurement input and layout output.
//
// [chart] - Column fill charts for judging how balanced a layout is.
//
// [observability] - Hooks for packing, caching, controller and HTTP events.
//
// [errors] - Coded errors with user-facing messages and HTTP status mapping.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/waterfall/...          # Specific package
//	go test -run Example                 # Examples only
//
// Redis tests run when WATERFALL_TEST_REDIS_ADDR points at a server.
//
// [waterfall]: https://pkg.go.dev/github.com/matzehuels/waterfall/pkg/waterfall
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/waterfall/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/waterfall/pkg/cache
// [io]: https://pkg.go.dev/github.com/matzehuels/waterfall/pkg/io
// [chart]: https://pkg.go.dev/github.com/matzehuels/waterfall/pkg/chart
// [observability]: https://pkg.go.dev/github.com/matzehuels/waterfall/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/waterfall/pkg/errors
package pkg
