// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render stitches chunk tiles into one continuous viewport image.
//
// # Two-stage Mapping
//
// Each chunk's nominal interval is intersected with the viewport. The
// intersection is mapped twice:
//
//   - into the viewport, giving the destination rectangle on the canvas
//   - into the chunk's buffer interval, giving the source rectangle in the tile
//
// Because a tile covers its buffer interval, not its nominal interval, the
// source rectangle never touches the tile's outer edge frames, and
// neighbouring chunks meet at exactly the same destination column.
//
// # Placeholders
//
// Chunks still loading (or whose tile was evicted) are filled with the
// loading colour; failed chunks with the error colour. Chunks outside the
// viewport are skipped.
//
// # Usage
//
//	r := render.New()
//	canvas := image.NewRGBA(image.Rect(0, 0, 1200, 512))
//	stats := r.Render(canvas, window, loader.FreqRange(), loader.Snapshot())
package render
