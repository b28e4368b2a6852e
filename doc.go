// Package spectro provides the viewport engine for navigating and annotating
// very long spectrograms that are streamed from a remote tile service.
//
// # Overview
//
// A spectrogram is addressed in data space: time in seconds on the X axis and
// frequency in Hz on the Y axis. Two rectangles drive everything else:
//
//   - Bounds: the largest navigable rectangle (task time range × 0..Nyquist)
//   - Window: the currently visible sub-rectangle, always kept inside Bounds
//
// The root package holds these types, the pure window transforms and the
// pixel ↔ data conversions. Sub-packages build the rest of the system:
//
//   - chunk: partitions the timeline into fixed-pixel-budget tiles
//   - cache: byte-budgeted LRU of decoded tiles with in-flight dedup
//   - tile: HTTP client for the remote image-generation service
//   - loader: decides which chunks must be resident and tracks their state
//   - render: stitches loaded chunks onto a canvas
//   - motion: pan, rubber-band zoom and wheel handling
//   - geometry, edit: annotation shapes and their direct-manipulation editor
//   - viewer: wires motion, loader and render together
//
// # Coordinate System
//
// Pixel coordinates follow the usual raster convention:
//   - Origin (0,0) at top-left of the canvas
//   - X increases right (later time)
//   - Y increases down (lower frequency); row 0 is the window's max frequency
//
// Geometries are always stored in data space and converted to pixels only
// at the drawing and editing boundary.
package spectro
