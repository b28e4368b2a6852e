// Package chunk partitions a recording's timeline into fixed-pixel-budget
// tiles.
//
// Each Chunk has a nominal Interval, which tiles the timeline without gaps,
// and a wider Buffer interval that is what actually gets requested from the
// tile service. Adjacent buffers overlap by a few STFT hops plus one analysis
// window, so that the frames at a tile's edge are computed with full context
// and stitched tiles show no seams.
//
//	planner := chunk.NewPlanner()
//	stft, err := params.Resolve(recording.Samplerate)
//	chunks := planner.Plan(recording.Duration, stft)
//
// Plans are pure and deterministic for a given duration and STFT.
package chunk
