package jpeg

import "fmt"

// BytesPerPixel is the sample size of packed YUYV 4:2:2 input.
const BytesPerPixel = 2

// Frame is a packed YUYV 4:2:2 image. Each horizontal pixel pair is stored as
// the four bytes Y0 U Y1 V, rows are Width*2 bytes apart and there is no row
// padding.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
}

// NewFrame returns a zeroed Frame of the given size.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Pix:    make([]byte, width*height*BytesPerPixel),
		Width:  width,
		Height: height,
	}
}

// PixOffset returns the index of the luma byte of the pixel at (x, y).
func (f *Frame) PixOffset(x, y int) int {
	return (y*f.Width + x) * BytesPerPixel
}

// Byte offsets of the chroma samples within a 4-byte pixel pair.
const (
	offsetCb = 1
	offsetCr = 3
)

// extractor reads level-shifted 8x8 blocks out of a Frame. w and h are the
// encoded (8-aligned) dimensions; reads past them repeat the last encoded
// row or column, the way a partial macroblock is padded.
type extractor struct {
	pix    []byte
	stride int
	w, h   int
	// mw and mh are w and h rounded up to whole 16x16 macroblocks.
	mw, mh int
}

func newExtractor(f *Frame, w, h int) (extractor, error) {
	if len(f.Pix) < f.Width*f.Height*BytesPerPixel {
		return extractor{}, fmt.Errorf("%w: frame holds %d bytes, want %d",
			ErrOutOfBounds, len(f.Pix), f.Width*f.Height*BytesPerPixel)
	}
	return extractor{
		pix:    f.Pix,
		stride: f.Width * BytesPerPixel,
		w:      w,
		h:      h,
		mw:     (w + 15) &^ 15,
		mh:     (h + 15) &^ 15,
	}, nil
}

func (x *extractor) check(bx, by int) error {
	if bx < 0 || by < 0 || bx >= x.mw || by >= x.mh {
		return fmt.Errorf("%w: block at (%d, %d) outside %dx%d", ErrOutOfBounds, bx, by, x.w, x.h)
	}
	return nil
}

// luma stores the 8x8 luma region whose top-left corner is (bx, by) in dst.
func (x *extractor) luma(dst *[blockSize]int16, bx, by int) error {
	if err := x.check(bx, by); err != nil {
		return err
	}
	xmax, ymax := x.w-1, x.h-1
	for j := 0; j < 8; j++ {
		row := x.pix[min(by+j, ymax)*x.stride:]
		for i := 0; i < 8; i++ {
			dst[8*j+i] = int16(row[min(bx+i, xmax)*BytesPerPixel]) - 128
		}
	}
	return nil
}

// chroma stores the 8x8 chroma block of the 16x16 macroblock whose top-left
// corner is (mx, my) in dst. off selects Cb or Cr. Horizontally each sample
// belongs to one pixel pair; vertically two source rows are averaged.
func (x *extractor) chroma(dst *[blockSize]int16, mx, my, off int) error {
	if err := x.check(mx, my); err != nil {
		return err
	}
	xmax, ymax := x.w-1, x.h-1
	for j := 0; j < 8; j++ {
		r0 := x.pix[min(my+2*j, ymax)*x.stride:]
		r1 := x.pix[min(my+2*j+1, ymax)*x.stride:]
		for i := 0; i < 8; i++ {
			k := (min(mx+2*i, xmax)&^1)*BytesPerPixel + off
			dst[8*j+i] = int16((int(r0[k])+int(r1[k]))>>1) - 128
		}
	}
	return nil
}
