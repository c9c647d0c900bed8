// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jpeg

import "io"

// stageSize is the number of bytes staged before they are handed to the sink.
const stageSize = 256

// sliceSink is a fixed-capacity io.Writer over a caller-owned byte slice.
// It never grows: a write that does not fit is rejected as a whole with
// ErrCapacityExceeded.
type sliceSink struct {
	buf []byte
	n   int
}

func (s *sliceSink) reset(buf []byte) {
	s.buf = buf
	s.n = 0
}

func (s *sliceSink) Write(p []byte) (int, error) {
	if len(p) > len(s.buf)-s.n {
		return 0, ErrCapacityExceeded
	}
	s.n += copy(s.buf[s.n:], p)
	return len(p), nil
}

// bitWriter packs entropy-coded bits MSB-first and forwards whole bytes to w
// through a small staging buffer.
type bitWriter struct {
	// w is the sink to write to. err is the first error encountered during
	// writing. All attempted writes after the first error become no-ops.
	w   io.Writer
	err error
	// buf is a scratch buffer for marker segments.
	buf [16]byte
	// stage holds bytes not yet handed to w.
	stage  [stageSize]byte
	nStage int
	// bits and nBits are accumulated bits to write to w.
	bits, nBits uint32
}

func (w *bitWriter) reset(dst io.Writer) {
	w.w = dst
	w.err = nil
	w.nStage = 0
	w.bits, w.nBits = 0, 0
}

// flush hands the staged bytes to the sink.
func (w *bitWriter) flush() {
	if w.err != nil || w.nStage == 0 {
		return
	}
	_, w.err = w.w.Write(w.stage[:w.nStage])
	w.nStage = 0
}

func (w *bitWriter) writeByte(b byte) {
	if w.err != nil {
		return
	}
	w.stage[w.nStage] = b
	w.nStage++
	if w.nStage == stageSize {
		w.flush()
	}
}

func (w *bitWriter) write(p []byte) {
	for _, b := range p {
		w.writeByte(b)
	}
}

// emit emits the least significant nBits bits of bits to the bit-stream.
// The precondition is bits < 1<<nBits && nBits <= 16.
func (w *bitWriter) emit(bits, nBits uint32) {
	if nBits == 0 {
		return
	}
	nBits += w.nBits
	bits <<= 32 - nBits
	bits |= w.bits
	for nBits >= 8 {
		b := uint8(bits >> 24)
		w.writeByte(b)
		if b == 0xff {
			w.writeByte(0x00)
		}
		bits <<= 8
		nBits -= 8
	}
	w.bits, w.nBits = bits, nBits
}

// padBits completes a partial byte with 1-bits.
func (w *bitWriter) padBits() {
	if w.nBits > 0 {
		n := 8 - w.nBits
		w.emit(1<<n-1, n)
	}
}
