package cache

import (
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/chunk"
)

// Key identifies one tile: a recording, the data-space window the tile was
// rendered for and the processing parameters.
type Key struct {
	RecordingID string
	Window      spectro.Window
	Params      string
}

// NewKey builds the key for the tile covering segment of a recording,
// over the full frequency range implied by params.
func NewKey(recordingID string, window spectro.Window, params chunk.Parameters) Key {
	return Key{
		RecordingID: recordingID,
		Window:      window,
		Params:      params.Key(),
	}
}

// String returns the stable signature of the key. Two keys with the same
// signature address the same cache entry.
func (k Key) String() string {
	num := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	var b strings.Builder
	b.WriteString(k.RecordingID)
	b.WriteByte('|')
	b.WriteString(num(k.Window.Time.Min))
	b.WriteByte(',')
	b.WriteString(num(k.Window.Time.Max))
	b.WriteByte(',')
	b.WriteString(num(k.Window.Freq.Min))
	b.WriteByte(',')
	b.WriteString(num(k.Window.Freq.Max))
	b.WriteByte('|')
	b.WriteString(k.Params)
	return b.String()
}

// Hash returns the FNV-1a hash of the key's signature.
func (k Key) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k.String())) // fnv.Write never returns an error
	return h.Sum64()
}
