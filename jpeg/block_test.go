package jpeg

import (
	"errors"
	"testing"
)

func TestExtractLuma(t *testing.T) {
	f := NewFrame(16, 16)
	fillFrame(f, func(x, y int) (uint8, uint8, uint8) { return uint8(16*y + x), 0, 0 })
	x, err := newExtractor(f, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	var b [blockSize]int16
	if err := x.luma(&b, 8, 8); err != nil {
		t.Fatal(err)
	}
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			if want := int16(16*(8+j)+8+i) - 128; b[8*j+i] != want {
				t.Fatalf("sample (%d, %d) = %d, want %d", i, j, b[8*j+i], want)
			}
		}
	}
}

func TestExtractLumaReplicatesEdge(t *testing.T) {
	// A 24x8 frame is one full and one half-covered macroblock wide and half
	// a macroblock tall.
	f := NewFrame(24, 8)
	fillFrame(f, func(x, y int) (uint8, uint8, uint8) { return uint8(10*y + x), 0, 0 })
	x, err := newExtractor(f, 24, 8)
	if err != nil {
		t.Fatal(err)
	}
	var b [blockSize]int16
	if err := x.luma(&b, 24, 8); err != nil {
		t.Fatal(err)
	}
	want := int16(10*7+23) - 128
	for i, v := range b {
		if v != want {
			t.Fatalf("sample %d = %d, want the corner value %d", i, v, want)
		}
	}
}

func TestExtractChromaAveragesRows(t *testing.T) {
	f := NewFrame(16, 16)
	fillFrame(f, func(x, y int) (uint8, uint8, uint8) {
		return 0, uint8(10*y + x/2), uint8(200 - y)
	})
	x, err := newExtractor(f, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	var cb, cr [blockSize]int16
	if err := x.chroma(&cb, 0, 0, offsetCb); err != nil {
		t.Fatal(err)
	}
	if err := x.chroma(&cr, 0, 0, offsetCr); err != nil {
		t.Fatal(err)
	}
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			a, b := 10*(2*j)+i, 10*(2*j+1)+i
			if want := int16((a+b)>>1) - 128; cb[8*j+i] != want {
				t.Fatalf("Cb (%d, %d) = %d, want %d", i, j, cb[8*j+i], want)
			}
			a, b = 200-2*j, 200-(2*j+1)
			if want := int16((a+b)>>1) - 128; cr[8*j+i] != want {
				t.Fatalf("Cr (%d, %d) = %d, want %d", i, j, cr[8*j+i], want)
			}
		}
	}
}

func TestExtractOutOfBounds(t *testing.T) {
	f := NewFrame(16, 16)
	x, err := newExtractor(f, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	var b [blockSize]int16
	for _, p := range [][2]int{{16, 0}, {0, 16}, {-8, 0}, {0, -1}} {
		if err := x.luma(&b, p[0], p[1]); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("luma at %v: got %v, want ErrOutOfBounds", p, err)
		}
		if err := x.chroma(&b, p[0], p[1], offsetCb); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("chroma at %v: got %v, want ErrOutOfBounds", p, err)
		}
	}

	short := &Frame{Pix: make([]byte, 16*16*2-1), Width: 16, Height: 16}
	if _, err := newExtractor(short, 16, 16); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("short frame: got %v, want ErrOutOfBounds", err)
	}
}
