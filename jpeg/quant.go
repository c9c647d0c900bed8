// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jpeg

import "fmt"

// ScaleBits is the fixed-point precision of the quantizer's reciprocal
// tables.
const ScaleBits = 10

const roundBias = 1<<(ScaleBits-1) - 1

type quantIndex int

const (
	quantIndexLuminance quantIndex = iota
	quantIndexChrominance
	nQuantIndex
)

// QuantTable is a 64-entry base quantization table in natural (row-major)
// order. Entries must be in [1, 255].
type QuantTable [blockSize]uint8

// DefaultLumaQuant and DefaultChromaQuant are the fixed tables used when no
// others are configured. They are the section K.1 tables at roughly half
// their size, i.e. a single high-quality setting.
var (
	DefaultLumaQuant = QuantTable{
		8, 6, 5, 8, 12, 20, 26, 31,
		6, 6, 7, 10, 13, 29, 30, 28,
		7, 7, 8, 12, 20, 29, 35, 28,
		7, 9, 11, 15, 26, 44, 40, 31,
		9, 11, 19, 28, 34, 55, 52, 39,
		12, 18, 28, 32, 41, 52, 57, 46,
		25, 32, 39, 44, 52, 61, 60, 51,
		36, 46, 48, 49, 56, 50, 52, 50,
	}
	DefaultChromaQuant = QuantTable{
		9, 9, 12, 24, 50, 50, 50, 50,
		9, 11, 13, 33, 50, 50, 50, 50,
		12, 13, 28, 50, 50, 50, 50, 50,
		24, 33, 50, 50, 50, 50, 50, 50,
		50, 50, 50, 50, 50, 50, 50, 50,
		50, 50, 50, 50, 50, 50, 50, 50,
		50, 50, 50, 50, 50, 50, 50, 50,
		50, 50, 50, 50, 50, 50, 50, 50,
	}
)

func (t *QuantTable) validate() error {
	for i, q := range t {
		if q == 0 {
			return fmt.Errorf("%w: quantization entry %d is zero", ErrInvalidArgument, i)
		}
	}
	return nil
}

// QScale returns round(2^ScaleBits / q0), the multiplier that replaces a
// division by q0.
func QScale(q0 uint8) uint16 {
	return uint16((1<<ScaleBits + uint32(q0)/2) / uint32(q0))
}

// Quantize returns coef/q0 rounded, where qscale is QScale(q0). The
// (coef>>15) term adds one for negative coefficients so the arithmetic right
// shift rounds symmetrically.
func Quantize(coef int16, qscale uint16) int16 {
	c := int32(coef)
	return int16((c*int32(qscale) - int32(coef>>15) + roundBias) >> ScaleBits)
}

// quantTable holds the per-coefficient multipliers of one QuantTable.
type quantTable [blockSize]uint16

func (q *quantTable) init(t *QuantTable) {
	for i, v := range t {
		q[i] = QScale(v)
	}
}

// Coefficient bounds for 8-bit baseline. Keeping |DC| <= 1023 bounds DC
// differences to category 11; AC values are limited to category 10.
const (
	maxDC = 1<<10 - 1
	maxAC = 1<<10 - 1
)

// quantize quantizes b into dst, both in natural order.
func (q *quantTable) quantize(dst *[blockSize]int16, b *[blockSize]int16) {
	dst[0] = clamp16(Quantize(b[0], q[0]), maxDC)
	for i := 1; i < blockSize; i++ {
		dst[i] = clamp16(Quantize(b[i], q[i]), maxAC)
	}
}

func clamp16(v, limit int16) int16 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
