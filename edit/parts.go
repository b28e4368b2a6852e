package edit

import (
	"fmt"
	"slices"

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/geometry"
)

func pt(p geometry.Position) spectro.Point { return p.Point() }

func timeStampParts(x, height float64) []part[float64] {
	return []part[float64]{{
		id:     "time",
		typ:    Edge,
		coords: []spectro.Point{{X: x, Y: 0}, {X: x, Y: height}},
		move:   func(t float64, d spectro.Point) float64 { return t + d.X },
	}}
}

func timeIntervalParts(c [2]float64, height float64) []part[[2]float64] {
	x0, x1 := c[0], c[1]
	return []part[[2]float64]{
		{
			id:     "start",
			typ:    Edge,
			coords: []spectro.Point{{X: x0, Y: 0}, {X: x0, Y: height}},
			move:   func(c [2]float64, d spectro.Point) [2]float64 { c[0] += d.X; return c },
		},
		{
			id:     "end",
			typ:    Edge,
			coords: []spectro.Point{{X: x1, Y: 0}, {X: x1, Y: height}},
			move:   func(c [2]float64, d spectro.Point) [2]float64 { c[1] += d.X; return c },
		},
		{
			id:     "interval",
			typ:    Area,
			coords: []spectro.Point{{X: x0, Y: 0}, {X: x1, Y: 0}, {X: x1, Y: height}, {X: x0, Y: height}},
			move: func(c [2]float64, d spectro.Point) [2]float64 {
				c[0] += d.X
				c[1] += d.X
				return c
			},
		},
	}
}

// Bounding box slots: 0 start time, 1 low freq, 2 end time, 3 high freq.
// In pixel space slot 1 is the larger Y.
func boundingBoxParts(c [4]float64) []part[[4]float64] {
	corner := func(id string, xi, yi int) part[[4]float64] {
		return part[[4]float64]{
			id:     id,
			typ:    Keypoint,
			coords: []spectro.Point{{X: c[xi], Y: c[yi]}},
			move: func(c [4]float64, d spectro.Point) [4]float64 {
				c[xi] += d.X
				c[yi] += d.Y
				return c
			},
		}
	}
	side := func(id string, slot int, a, b spectro.Point) part[[4]float64] {
		horizontal := slot == 1 || slot == 3
		return part[[4]float64]{
			id:     id,
			typ:    Edge,
			coords: []spectro.Point{a, b},
			move: func(c [4]float64, d spectro.Point) [4]float64 {
				if horizontal {
					c[slot] += d.Y
				} else {
					c[slot] += d.X
				}
				return c
			},
		}
	}

	startLow := spectro.Point{X: c[0], Y: c[1]}
	startHigh := spectro.Point{X: c[0], Y: c[3]}
	endLow := spectro.Point{X: c[2], Y: c[1]}
	endHigh := spectro.Point{X: c[2], Y: c[3]}

	return []part[[4]float64]{
		corner("start-low", 0, 1),
		corner("start-high", 0, 3),
		corner("end-low", 2, 1),
		corner("end-high", 2, 3),
		side("start", 0, startLow, startHigh),
		side("end", 2, endLow, endHigh),
		side("low", 1, startLow, endLow),
		side("high", 3, startHigh, endHigh),
		{
			id:     "box",
			typ:    Area,
			coords: []spectro.Point{startLow, endLow, endHigh, startHigh},
			move: func(c [4]float64, d spectro.Point) [4]float64 {
				c[0] += d.X
				c[2] += d.X
				c[1] += d.Y
				c[3] += d.Y
				return c
			},
		},
	}
}

func positionParts(p geometry.Position) []part[geometry.Position] {
	return []part[geometry.Position]{{
		id:     "point",
		typ:    Keypoint,
		coords: []spectro.Point{pt(p)},
		move:   func(p geometry.Position, d spectro.Point) geometry.Position { return p.Add(d) },
	}}
}

// moveVertices returns a copy of ps with the vertices at idx moved by d.
func moveVertices(ps []geometry.Position, d spectro.Point, idx ...int) []geometry.Position {
	cp := slices.Clone(ps)
	for _, i := range idx {
		if i < len(cp) {
			cp[i] = cp[i].Add(d)
		}
	}
	return cp
}

func lineParts(ps []geometry.Position) []part[[]geometry.Position] {
	out := make([]part[[]geometry.Position], 0, 2*len(ps))
	for i, p := range ps {
		out = append(out, part[[]geometry.Position]{
			id:     fmt.Sprintf("vertex-%d", i),
			typ:    Keypoint,
			coords: []spectro.Point{pt(p)},
			move: func(ps []geometry.Position, d spectro.Point) []geometry.Position {
				return moveVertices(ps, d, i)
			},
		})
	}
	for i := range len(ps) - 1 {
		out = append(out, part[[]geometry.Position]{
			id:     fmt.Sprintf("segment-%d", i),
			typ:    Edge,
			coords: []spectro.Point{pt(ps[i]), pt(ps[i+1])},
			move: func(ps []geometry.Position, d spectro.Point) []geometry.Position {
				return moveVertices(ps, d, i, i+1)
			},
		})
	}
	return out
}

func closed(ring []geometry.Position) bool {
	return len(ring) > 1 && ring[0] == ring[len(ring)-1]
}

// ringParts builds vertex and segment parts for a polygon ring. On a closed
// ring the repeated last position is coupled to the first so the ring stays
// closed under every drag.
func ringParts(ring []geometry.Position) []part[[]geometry.Position] {
	n := len(ring)
	if closed(ring) {
		n--
	}
	// physical returns the slots that hold logical vertex v.
	physical := func(v int) []int {
		v %= n
		if v == 0 && closed(ring) {
			return []int{0, len(ring) - 1}
		}
		return []int{v}
	}

	out := make([]part[[]geometry.Position], 0, 2*n)
	for v := range n {
		out = append(out, part[[]geometry.Position]{
			id:     fmt.Sprintf("vertex-%d", v),
			typ:    Keypoint,
			coords: []spectro.Point{pt(ring[v])},
			move: func(ps []geometry.Position, d spectro.Point) []geometry.Position {
				return moveVertices(ps, d, physical(v)...)
			},
		})
	}
	if n < 2 {
		return out
	}
	for v := range n {
		w := (v + 1) % n
		out = append(out, part[[]geometry.Position]{
			id:     fmt.Sprintf("segment-%d", v),
			typ:    Edge,
			coords: []spectro.Point{pt(ring[v]), pt(ring[w])},
			move: func(ps []geometry.Position, d spectro.Point) []geometry.Position {
				return moveVertices(ps, d, append(physical(v), physical(w)...)...)
			},
		})
	}
	return out
}

func polygonParts(rings [][]geometry.Position) []part[[][]geometry.Position] {
	var out []part[[][]geometry.Position]
	for i, r := range rings {
		out = append(out, lift(i, ringParts(r))...)
	}
	if len(rings) == 0 {
		return out
	}
	outline := make([]spectro.Point, 0, len(rings[0]))
	for _, p := range rings[0] {
		outline = append(outline, pt(p))
	}
	return append(out, part[[][]geometry.Position]{
		id:     "area",
		typ:    Area,
		coords: outline,
		move: func(rs [][]geometry.Position, d spectro.Point) [][]geometry.Position {
			cp := make([][]geometry.Position, len(rs))
			for i, r := range rs {
				cp[i] = moveVertices(r, d, allIndices(len(r))...)
			}
			return cp
		},
	})
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
