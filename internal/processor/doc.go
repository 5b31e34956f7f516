// Package processor defines the closed set of processor kinds and the
// registry that routes a source file to exactly one of them.
//
// Each kind owns an extension set (from config), a destination rule and a
// transform. Routing is first-match in registration order, so overlapping
// extension lists resolve to the earlier kind.
//
// Destinations are written atomically: the transform output goes to a
// temporary file in the destination directory which is renamed into place
// only after the write completes. A failed transform never leaves a partial
// file behind.
package processor
