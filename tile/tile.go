// Package tile fetches rendered spectrogram and waveform tiles from the
// remote image-generation service.
//
// A tile is requested for a recording, a time segment in seconds and a set of
// processing parameters. The service answers with an image whose width maps
// linearly to the segment and whose height maps, inverted, to 0..Nyquist.
// Identical requests must yield identical images; the tile cache relies on it.
package tile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png" // register PNG decoder
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/chunk"
)

// Errors returned by Client.Fetch.
var (
	// ErrUnexpectedStatus is returned when the service answers with a non-200 status.
	ErrUnexpectedStatus = errors.New("tile: unexpected status")

	// ErrEmptyTile is returned when the service answers with an empty body.
	ErrEmptyTile = errors.New("tile: empty response")

	// ErrInvalidQuery is returned by ParseQuery for malformed parameters.
	ErrInvalidQuery = errors.New("tile: invalid query")
)

// MaxTileBytes limits the size of one encoded tile.
const MaxTileBytes = 64 << 20

// Kind selects the representation a tile is rendered as.
type Kind uint8

const (
	// Spectrogram tiles are time × frequency images.
	Spectrogram Kind = iota

	// Waveform tiles are time × amplitude images.
	Waveform
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Spectrogram:
		return "spectrogram"
	case Waveform:
		return "waveform"
	default:
		return "unknown"
	}
}

// path returns the service endpoint for k.
func (k Kind) path() string {
	if k == Waveform {
		return "waveforms/"
	}
	return "spectrograms/"
}

// Request describes one tile.
type Request struct {
	RecordingID string
	Segment     spectro.Interval
	Params      chunk.Parameters
	Kind        Kind
}

// Fetcher loads one decoded tile.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (image.Image, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req Request) (image.Image, error)

// Fetch calls f(ctx, req).
func (f FetcherFunc) Fetch(ctx context.Context, req Request) (image.Image, error) {
	return f(ctx, req)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Client talks to the tile service over HTTP. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client

	// bufs holds encoded-tile buffers. Each buffer lives only between the
	// response read and the decode.
	bufs sync.Pool
}

// NewClient creates a client for the service rooted at baseURL,
// e.g. "http://localhost:5000/api/v1/".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("tile: parse base url: %w", err)
	}
	if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
		u.Path += "/"
	}

	c := &Client{
		base: u,
		http: http.DefaultClient,
	}
	c.bufs.New = func() any { return new(bytes.Buffer) }
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the request URL for req.
func (c *Client) URL(req Request) string {
	u := c.base.ResolveReference(&url.URL{Path: req.Kind.path()})
	u.RawQuery = Query(req).Encode()
	return u.String()
}

// Query returns the query parameters describing req.
func Query(req Request) url.Values {
	num := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	p := req.Params

	q := url.Values{}
	q.Set("recording_uuid", req.RecordingID)
	q.Set("start_time", num(req.Segment.Min))
	q.Set("end_time", num(req.Segment.Max))
	q.Set("window_size_samples", strconv.Itoa(p.WindowSizeSamples))
	q.Set("overlap_percent", num(p.OverlapPercent))
	q.Set("samplerate", num(p.Samplerate))
	q.Set("resample", strconv.FormatBool(p.Resample))
	q.Set("auto_stft", strconv.FormatBool(p.AutoSTFT))
	q.Set("channel", strconv.Itoa(p.Channel))
	q.Set("min_dB", num(p.MinDB))
	q.Set("max_dB", num(p.MaxDB))
	if p.Window != "" {
		q.Set("window", p.Window)
	}
	if p.Scale != "" {
		q.Set("scale", p.Scale)
	}
	if p.Colormap != "" {
		q.Set("cmap", p.Colormap)
	}
	return q
}

// ParseQuery is the inverse of Query. The kind is not part of the query and
// is left as Spectrogram.
func ParseQuery(q url.Values) (Request, error) {
	var (
		req  Request
		errs []error
	)
	flt := func(name string) float64 {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return v
	}
	integer := func(name string) int {
		v, err := strconv.Atoi(q.Get(name))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return v
	}
	boolean := func(name string) bool {
		v, err := strconv.ParseBool(q.Get(name))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return v
	}

	req.RecordingID = q.Get("recording_uuid")
	if req.RecordingID == "" {
		errs = append(errs, errors.New("recording_uuid: missing"))
	}
	req.Segment = spectro.Interval{Min: flt("start_time"), Max: flt("end_time")}
	req.Params = chunk.Parameters{
		WindowSizeSamples: integer("window_size_samples"),
		OverlapPercent:    flt("overlap_percent"),
		Samplerate:        flt("samplerate"),
		Resample:          boolean("resample"),
		AutoSTFT:          boolean("auto_stft"),
		Channel:           integer("channel"),
		MinDB:             flt("min_dB"),
		MaxDB:             flt("max_dB"),
		Window:            q.Get("window"),
		Scale:             q.Get("scale"),
		Colormap:          q.Get("cmap"),
	}
	if len(errs) > 0 {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidQuery, errors.Join(errs...))
	}
	return req, nil
}

// KindFromPath returns the kind served at the given URL path.
func KindFromPath(path string) (Kind, bool) {
	switch {
	case strings.HasSuffix(path, "/"+Spectrogram.path()), strings.HasSuffix(path, "/spectrograms"):
		return Spectrogram, true
	case strings.HasSuffix(path, "/"+Waveform.path()), strings.HasSuffix(path, "/waveforms"):
		return Waveform, true
	default:
		return 0, false
	}
}

// Fetch requests and decodes the tile described by req.
func (c *Client) Fetch(ctx context.Context, req Request) (image.Image, error) {
	target := c.URL(req)
	spectro.Logger().Debug("tile: fetch", "url", target)

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("tile: build request: %w", err)
	}
	hreq.Header.Set("Accept", "image/png, image/webp")

	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("tile: fetch %s: %w", req.Segment, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode, req.Segment)
	}

	buf := c.bufs.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufs.Put(buf)

	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, MaxTileBytes)); err != nil {
		return nil, fmt.Errorf("tile: read body: %w", err)
	}
	return Decode(buf.Bytes())
}

// Decode decodes an encoded tile. PNG and WebP are supported.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyTile
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("tile: decode: %w", err)
	}
	return img, nil
}
