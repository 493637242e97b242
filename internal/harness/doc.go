// Package harness runs YAML scenarios against real sheet controllers and
// records a deterministic trace of what every window, store and subscriber
// did.
//
// A scenario seeds one actor document, then drives numbered steps:
//
//	name: reseed_on_second_render
//	description: A second render pushes a forced set instead of remounting.
//	entity: {id: actor-1, name: Bob}
//	steps:
//	  - op: render
//	  - op: render
//	    expect:
//	      - stores: 1
//	      - notified: {subscriber: "view:main", count: 2, name: Bob}
//
// Each run uses a fresh document, registry and deterministic clock, so the
// same scenario always yields a byte-identical trace. RunWithGolden compares
// that trace against testdata/golden/<name>.golden:
//
//	go test ./internal/harness -update
//
// regenerates the golden files.
package harness
