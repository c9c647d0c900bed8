// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jpeg

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a frame or destination the encoder cannot
	// work with.
	ErrInvalidArgument = errors.New("jpeg: invalid argument")
	// ErrCapacityExceeded reports that the encoded image does not fit in
	// the destination buffer.
	ErrCapacityExceeded = errors.New("jpeg: destination capacity exceeded")
	// ErrOutOfBounds reports a block read outside the frame.
	ErrOutOfBounds = errors.New("jpeg: block out of bounds")
)

// MaxDimension bounds the width and height that fit in a SOF0 segment.
const MaxDimension = 1<<16 - 1

// Options are the encoding parameters. A nil *Options, or a nil table,
// selects DefaultLumaQuant and DefaultChromaQuant.
type Options struct {
	LumaQuant   *QuantTable
	ChromaQuant *QuantTable
}

// Encoder encodes YUYV frames as baseline 4:2:0 JFIF images. An Encoder keeps
// per-image state and must not be used by more than one goroutine at a time;
// it can be reused for any number of frames.
type Encoder struct {
	bw   bitWriter
	sink sliceSink
	// tables are the base quantization tables, in natural order, as written
	// to DQT. scale are their fixed-point reciprocals.
	tables [nQuantIndex]QuantTable
	scale  [nQuantIndex]quantTable
	// Scratch blocks, in natural order.
	b, q [blockSize]int16
	// DC components are delta-encoded.
	prevDC [nComponent]int32
}

// NewEncoder returns an Encoder using the tables in o.
func NewEncoder(o *Options) (*Encoder, error) {
	e := &Encoder{}
	e.tables[quantIndexLuminance] = DefaultLumaQuant
	e.tables[quantIndexChrominance] = DefaultChromaQuant
	if o != nil {
		if o.LumaQuant != nil {
			e.tables[quantIndexLuminance] = *o.LumaQuant
		}
		if o.ChromaQuant != nil {
			e.tables[quantIndexChrominance] = *o.ChromaQuant
		}
	}
	for i := range e.tables {
		if err := e.tables[i].validate(); err != nil {
			return nil, err
		}
		e.scale[i].init(&e.tables[i])
	}
	return e, nil
}

// EncodedSize returns the dimensions written to the SOF0 segment for a
// frame of the given size: both are truncated to a multiple of 8.
func EncodedSize(width, height int) (w, h int) {
	return width &^ 7, height &^ 7
}

func validateFrame(f *Frame) error {
	if f == nil || len(f.Pix) == 0 {
		return fmt.Errorf("%w: empty frame", ErrInvalidArgument)
	}
	if f.Width <= 0 || f.Height <= 0 || f.Width > MaxDimension || f.Height > MaxDimension {
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalidArgument, f.Width, f.Height)
	}
	if bpp := len(f.Pix) / (f.Width * f.Height); bpp != BytesPerPixel {
		return fmt.Errorf("%w: %d bytes per pixel, want %d", ErrInvalidArgument, bpp, BytesPerPixel)
	}
	if w, h := EncodedSize(f.Width, f.Height); w == 0 || h == 0 {
		return fmt.Errorf("%w: frame size %dx%d is smaller than one block", ErrInvalidArgument, f.Width, f.Height)
	}
	return nil
}

// Encode writes f to dst as a baseline JPEG and returns the number of bytes
// written. dst is never grown: if the image does not fit, Encode returns 0
// and ErrCapacityExceeded, and the contents of dst are unspecified.
func (e *Encoder) Encode(dst []byte, f *Frame) (int, error) {
	if len(dst) == 0 {
		return 0, fmt.Errorf("%w: empty destination", ErrInvalidArgument)
	}
	if err := validateFrame(f); err != nil {
		return 0, err
	}
	w, h := EncodedSize(f.Width, f.Height)
	x, err := newExtractor(f, w, h)
	if err != nil {
		return 0, err
	}

	e.sink.reset(dst)
	e.bw.reset(&e.sink)
	e.prevDC = [nComponent]int32{}

	e.bw.writeMarker(soiMarker)
	e.bw.writeAPP0()
	e.bw.writeDQT(&e.tables)
	e.bw.writeSOF0(w, h)
	e.bw.writeDHT()
	e.bw.writeSOS()
	if err := e.writeScan(&x); err != nil {
		return 0, err
	}
	// Pad the last byte with 1's.
	e.bw.padBits()
	e.bw.writeMarker(eoiMarker)
	e.bw.flush()
	if e.bw.err != nil {
		return 0, e.bw.err
	}
	return e.sink.n, nil
}

// writeScan codes every 16x16 macroblock as four luma blocks followed by one
// Cb and one Cr block.
func (e *Encoder) writeScan(x *extractor) error {
	for my := 0; my < x.h; my += 16 {
		for mx := 0; mx < x.w; mx += 16 {
			for i := 0; i < 4; i++ {
				xOff := (i & 1) * 8 // 0 8 0 8
				yOff := (i & 2) * 4 // 0 0 8 8
				if err := x.luma(&e.b, mx+xOff, my+yOff); err != nil {
					return err
				}
				e.writeBlock(compY)
			}
			if err := x.chroma(&e.b, mx, my, offsetCb); err != nil {
				return err
			}
			e.writeBlock(compCb)
			if err := x.chroma(&e.b, mx, my, offsetCr); err != nil {
				return err
			}
			e.writeBlock(compCr)
			if e.bw.err != nil {
				return e.bw.err
			}
		}
	}
	return nil
}

// writeBlock transforms, quantizes and codes the samples in e.b.
func (e *Encoder) writeBlock(c component) {
	fdct(&e.b)
	e.scale[c.quant()].quantize(&e.q, &e.b)
	e.prevDC[c] = e.bw.writeBlock(&e.q, c, e.prevDC[c])
}
