// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jpeg

// Markers, section B.1.1.3.
const (
	sof0Marker = 0xc0 // Start Of Frame (Baseline Sequential).
	dhtMarker  = 0xc4 // Define Huffman Table.
	soiMarker  = 0xd8 // Start Of Image.
	eoiMarker  = 0xd9 // End Of Image.
	sosMarker  = 0xda // Start Of Scan.
	dqtMarker  = 0xdb // Define Quantization Table.
	app0Marker = 0xe0
)

// writeMarker writes a marker that carries no segment.
func (w *bitWriter) writeMarker(marker uint8) {
	w.buf[0] = 0xff
	w.buf[1] = marker
	w.write(w.buf[:2])
}

// writeMarkerHeader writes the header for a marker with the given length.
func (w *bitWriter) writeMarkerHeader(marker uint8, markerlen int) {
	w.buf[0] = 0xff
	w.buf[1] = marker
	w.buf[2] = uint8(markerlen >> 8)
	w.buf[3] = uint8(markerlen & 0xff)
	w.write(w.buf[:4])
}

// jfifHeader is the APP0 payload: identifier, version 1.01, no density
// units, a 1:1 pixel aspect ratio and no thumbnail.
var jfifHeader = []byte{
	'J', 'F', 'I', 'F', 0x00,
	0x01, 0x01,
	0x00,
	0x00, 0x01, 0x00, 0x01,
	0x00, 0x00,
}

// writeAPP0 writes the JFIF application segment.
func (w *bitWriter) writeAPP0() {
	w.writeMarkerHeader(app0Marker, 2+len(jfifHeader))
	w.write(jfifHeader)
}

// writeDQT writes both quantization tables, in zig-zag order, in a single
// Define Quantization Table marker.
func (w *bitWriter) writeDQT(tables *[nQuantIndex]QuantTable) {
	const markerlen = 2 + int(nQuantIndex)*(1+blockSize)
	w.writeMarkerHeader(dqtMarker, markerlen)
	for i := range tables {
		w.writeByte(uint8(i))
		for zig := 0; zig < blockSize; zig++ {
			w.writeByte(tables[i][unzig[zig]])
		}
	}
}

// writeSOF0 writes the Start Of Frame (Baseline Sequential) marker for a
// three component 4:2:0 image.
func (w *bitWriter) writeSOF0(width, height int) {
	const markerlen = 8 + 3*int(nComponent)
	w.writeMarkerHeader(sof0Marker, markerlen)
	w.buf[0] = 8 // 8-bit color.
	w.buf[1] = uint8(height >> 8)
	w.buf[2] = uint8(height & 0xff)
	w.buf[3] = uint8(width >> 8)
	w.buf[4] = uint8(width & 0xff)
	w.buf[5] = uint8(nComponent)
	for i := 0; i < int(nComponent); i++ {
		w.buf[3*i+6] = uint8(i + 1)
		w.buf[3*i+7] = "\x22\x11\x11"[i]
		w.buf[3*i+8] = "\x00\x01\x01"[i]
	}
	w.write(w.buf[:3*int(nComponent-1)+9])
}

// writeDHT writes all four Huffman tables in a single Define Huffman Table
// marker.
func (w *bitWriter) writeDHT() {
	markerlen := 2
	for _, s := range theHuffmanSpec {
		markerlen += 1 + 16 + len(s.value)
	}
	w.writeMarkerHeader(dhtMarker, markerlen)
	for i, s := range theHuffmanSpec {
		w.writeByte("\x00\x10\x01\x11"[i])
		w.write(s.count[:])
		w.write(s.value)
	}
}

// sosHeader is the Start Of Scan header for a full spectral baseline scan of
// Y, Cb and Cr, with Y on tables 0 and both chroma components on tables 1.
var sosHeader = []byte{
	0xff, sosMarker, 0x00, 0x0c, 0x03, 0x01, 0x00, 0x02,
	0x11, 0x03, 0x11, 0x00, 0x3f, 0x00,
}

func (w *bitWriter) writeSOS() {
	w.write(sosHeader)
}
