// Package cache implements the degrade-to-null cache facade: one entry point
// that is always safe to call no matter how the remote store is doing.
//
// Components:
//   - driver: the backend contract with three variants -- Null (no-op),
//     redis (remote), ristretto (in-process) -- selected by name.
//   - Cache: a registry of driver instances keyed by driver name. Every call
//     re-evaluates the current driver's health; a closed driver is evicted
//     from the registry and the Null driver takes over, so a request's cache
//     access may transparently degrade mid-flight.
//   - Typed[V]: a codec-backed typed view over the byte-oriented surface.
//
// The facade never retries failed remote operations. Degrade is silent and
// automatic; recovery happens when a caller re-selects the remote driver via
// Use, which builds a fresh instance because the dead one was evicted.
//
// Cache-aside memoization (Remember) is at-least-once compute with
// last-write-wins: two concurrent misses may both compute, the second write
// simply overwrites. When the driver fails mid-Remember and turns out to be
// closed, the facade runs compute directly instead of surfacing the error --
// availability of the request path wins over cache correctness.
package cache
