// Package harness runs scripted pipeline scenarios.
//
// A scenario seeds a temporary source tree, then alternates edits with
// ticks of a real engine. Each tick scans once and drains every Execution
// Unit before the next step, so the trace is deterministic.
//
// # Scenario Format
//
//	name: mesh_retry
//	description: "A corrupt mesh is retried until it is fixed"
//	config:
//	  mesh: [glb, gltf]
//	files:
//	  - path: models/ship.glb
//	    mesh: glb
//	  - path: models/broken.glb
//	    content: "not a mesh"
//	steps:
//	  - tick: true
//	    expect:
//	      queued: [models/broken.glb, models/ship.glb]
//	      failed: [models/broken.glb]
//	      outputs: [models/ship.glb]
//	      missing: [models/broken.glb]
//	  - write:
//	      path: models/broken.glb
//	      mesh: glb
//	  - tick: true
//	    expect:
//	      processed: [models/broken.glb]
//
// Step actions: tick, write, touch, mkdir, remove_output.
//
// # Golden Traces
//
// The trace of every step plus the final destination listing is compared
// against testdata/golden/<name>.golden (see RunWithGolden). The CLI keeps
// golden files next to the scenarios, in golden/<file>.golden.
package harness
