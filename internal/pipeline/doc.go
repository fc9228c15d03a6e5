// Package pipeline sequences one simulation step: force application,
// broad-phase update, narrow-phase manifold persistence, island building,
// the constraint solve, integration, the continuous-collision pass and
// sleep evaluation.
//
// A step is atomic from the caller's view: [Engine.Step] returns only once
// the full sequence completed, and per-pair or per-body failures are
// aggregated into [Result].Errors rather than aborting the step. Only an
// invalid timestep fails the call itself.
//
// # Thread Safety
//
// Engine instances are NOT thread-safe. Internal parallelism is confined
// to solving disjoint islands, which by construction share no bodies.
package pipeline
