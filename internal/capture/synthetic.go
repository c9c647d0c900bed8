package capture

import (
	"context"
	"fmt"

	"github.com/jackzfdai/wifi-camera/jpeg"
)

// Synthetic patterns.
const (
	PatternGray     = "gray"
	PatternGradient = "gradient"
	PatternBars     = "bars"
)

// YUV values of the 75% colour bars, left to right.
var bars = [...][3]byte{
	{180, 128, 128}, // white
	{162, 44, 142},  // yellow
	{131, 156, 44},  // cyan
	{112, 72, 58},   // green
	{84, 184, 198},  // magenta
	{65, 100, 212},  // red
	{35, 212, 114},  // blue
	{16, 128, 128},  // black
}

// SyntheticSource renders a test pattern. Frames after the first scroll the
// pattern one pixel pair to the left so that consecutive frames differ.
type SyntheticSource struct {
	pattern string
	frame   *jpeg.Frame
	n       int
}

// NewSynthetic returns a source producing the named pattern.
func NewSynthetic(pattern string, width, height int) (*SyntheticSource, error) {
	switch pattern {
	case PatternGray, PatternGradient, PatternBars:
	default:
		return nil, fmt.Errorf("capture: unknown pattern %q", pattern)
	}
	if width < 2 || height < 1 || width%2 != 0 {
		return nil, fmt.Errorf("capture: invalid frame size %dx%d", width, height)
	}
	return &SyntheticSource{pattern: pattern, frame: jpeg.NewFrame(width, height)}, nil
}

// Next renders the next frame.
func (s *SyntheticSource) Next(ctx context.Context) (*jpeg.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	render(s.frame, s.pattern, 2*s.n)
	s.n++
	return s.frame, nil
}

// Close is a no-op.
func (s *SyntheticSource) Close() error { return nil }

// render draws pattern into f shifted left by shift pixels.
func render(f *jpeg.Frame, pattern string, shift int) {
	for y := 0; y < f.Height; y++ {
		for x := 0; x+1 < f.Width; x += 2 {
			var yv0, yv1, cb, cr byte
			switch pattern {
			case PatternGray:
				yv0, yv1, cb, cr = 128, 128, 128, 128
			case PatternGradient:
				yv0 = gradient(x+shift, y, f.Width, f.Height)
				yv1 = gradient(x+1+shift, y, f.Width, f.Height)
				cb = byte(64 + 128*y/f.Height)
				cr = byte(64 + 128*((x+shift)%f.Width)/f.Width)
			case PatternBars:
				b := bars[((x+shift)%f.Width)*len(bars)/f.Width]
				yv0, yv1, cb, cr = b[0], b[0], b[1], b[2]
			}
			o := f.PixOffset(x, y)
			f.Pix[o+0] = yv0
			f.Pix[o+1] = cb
			f.Pix[o+2] = yv1
			f.Pix[o+3] = cr
		}
	}
}

func gradient(x, y, w, h int) byte {
	x %= w
	return byte(16 + 219*(x+y)/(w+h))
}
