// Package mesh converts between glTF container variants.
//
// Every input is decoded with github.com/qmuntal/gltf into a Graph whose
// buffers have been merged into one. A Graph is then encoded into the
// canonical output container (binary GLB or self-contained glTF with the
// buffer embedded as a data URI).
//
// Supported inputs:
//   - glb: binary glTF 2.0, any number of buffers
//   - gltf: JSON glTF 2.0, buffers as base64 data URIs or relative files
//
// glxf is recognized but not supported; decoding it returns
// ErrUnsupportedFormat.
package mesh
