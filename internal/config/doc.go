// Package config defines the read-only configuration snapshot consumed by the
// asset pipeline.
//
// The configuration lives in a TOML file at the root of the source tree
// (conventionally assets-dev/config.toml). The scan never processes that file.
//
// # Loading
//
// LoadOrInit is the entrypoint used by the CLI:
//   - missing file: the default configuration text is written and defaults returned
//   - corrupt file: the error is logged and defaults returned
//   - valid file: parsed, normalized and validated against the embedded CUE schema
//
// Extensions are case-insensitive and stored without a leading dot. When two
// kinds list the same extension, the kind registered first wins; Overlaps
// reports such collisions so the caller can warn about them.
package config
