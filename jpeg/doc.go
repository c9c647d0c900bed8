// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jpeg implements a baseline JPEG encoder for packed YUYV 4:2:2
// camera frames.
//
// Output is always a three component JFIF image with 4:2:0 chroma
// subsampling and the standard Huffman tables of section K.3. Quantization
// tables default to a fixed pair derived from section K.1 and can be
// replaced per Encoder. The encoder writes into a caller-supplied byte
// slice and never allocates per frame.
//
// The ITU-T T.81 standard is at https://www.w3.org/Graphics/JPEG/itu-t81.pdf.
package jpeg
