package assets

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"net/http"

	_ "golang.org/x/image/webp"

	"github.com/JaimeStill/palette/pkg/remote"
)

type ratio struct {
	name string
	w, h float64
}

// Supported aspect ratios, in preference order for ties.
var ratios = []ratio{
	{"1:1", 1, 1},
	{"16:9", 16, 9},
	{"9:16", 9, 16},
	{"4:3", 4, 3},
	{"3:4", 3, 4},
	{"3:2", 3, 2},
	{"2:3", 2, 3},
	{"21:9", 21, 9},
}

// ImageInfo describes a decoded image header.
type ImageInfo struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Format      string `json:"format"`
	AspectRatio string `json:"aspectRatio"`
}

// Probe reads only the image header at src and reports its size and
// nearest supported aspect ratio. Private hosts are rejected unless the
// store allows private sources.
func (s *Store) Probe(ctx context.Context, src string) (*ImageInfo, error) {
	if !s.private {
		if err := remote.CheckPublic(src); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetch, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrFetch, src, resp.StatusCode)
	}

	cfg, format, err := image.DecodeConfig(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	return &ImageInfo{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      format,
		AspectRatio: NearestRatio(cfg.Width, cfg.Height),
	}, nil
}

// AspectRatio probes src and returns its nearest supported ratio.
func (s *Store) AspectRatio(ctx context.Context, src string) (string, error) {
	info, err := s.Probe(ctx, src)
	if err != nil {
		return "", err
	}
	return info.AspectRatio, nil
}

// NearestRatio returns the supported ratio closest to width:height on a
// log scale. Degenerate sizes return "1:1".
func NearestRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}

	target := math.Log(float64(width) / float64(height))
	best, bestDist := ratios[0].name, math.Inf(1)

	for _, r := range ratios {
		if d := math.Abs(math.Log(r.w/r.h) - target); d < bestDist {
			best, bestDist = r.name, d
		}
	}
	return best
}
