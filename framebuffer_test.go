// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"image"
	"testing"
)

func TestFramebuffer_FillRejectsOutOfBounds(t *testing.T) {
	fb := NewFramebuffer(4, 4)

	if err := fb.Fill(0, 0, 2, 2, 0xFF0000FF); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if got := fb.ReadPixel(1, 1); got != 0xFF0000FF {
		t.Errorf("ReadPixel(1,1) = %#x, want 0xFF0000FF", got)
	}
	if got := fb.ReadPixel(2, 0); got != 0 {
		t.Errorf("ReadPixel(2,0) = %#x, want 0 (untouched)", got)
	}

	if err := fb.Fill(3, 3, 2, 2, 0xFFFFFFFF); err == nil {
		t.Fatal("Fill past the edge should return MalformedUpdate")
	} else if !IsVNCError(err, ErrMalformedUpdate) {
		t.Errorf("expected ErrMalformedUpdate, got %v", err)
	}
}

func TestFramebuffer_PutPixelsRejectsShortPayload(t *testing.T) {
	fb := NewFramebuffer(4, 4)

	err := fb.PutPixels(0, 0, 2, 2, []uint32{1, 2, 3})
	if err == nil || !IsVNCError(err, ErrMalformedUpdate) {
		t.Fatalf("expected ErrMalformedUpdate for short payload, got %v", err)
	}
}

// TestFramebuffer_CopyRectNonOverlapping covers S4: preload distinct colors,
// copy a 2x2 block across the framebuffer, and check the destination matches
// the source's pre-copy state.
func TestFramebuffer_CopyRectNonOverlapping(t *testing.T) {
	fb := NewFramebuffer(4, 4)
	src := []uint32{0xFFAABBCC, 0xFF112233, 0xFF445566, 0xFF778899}
	if err := fb.PutPixels(0, 0, 2, 2, src); err != nil {
		t.Fatalf("PutPixels: %v", err)
	}

	if err := fb.CopyRect(0, 0, 2, 2, 2, 2); err != nil {
		t.Fatalf("CopyRect: %v", err)
	}

	for i, want := range src {
		x, y := uint16(i%2)+2, uint16(i/2)+2
		if got := fb.ReadPixel(x, y); got != want {
			t.Errorf("ReadPixel(%d,%d) = %#x, want %#x", x, y, got, want)
		}
	}
}

// TestFramebuffer_CopyRectOverlapMemmove copies a 4x4 block one pixel down
// and right over itself; the result must match a memmove, not a naive
// forward copy that would clobber source rows before they are read.
func TestFramebuffer_CopyRectOverlapMemmove(t *testing.T) {
	fb := NewFramebuffer(6, 6)
	src := make([]uint32, 16)
	for i := range src {
		src[i] = uint32(0xFF000000 | i)
	}
	if err := fb.PutPixels(0, 0, 4, 4, src); err != nil {
		t.Fatalf("PutPixels: %v", err)
	}

	// Capture expected memmove result by hand, row-major, before the copy.
	expected := make([][]uint32, 4)
	for row := range expected {
		expected[row] = make([]uint32, 4)
		copy(expected[row], src[row*4:row*4+4])
	}

	if err := fb.CopyRect(0, 0, 1, 1, 4, 4); err != nil {
		t.Fatalf("CopyRect: %v", err)
	}

	for row := 3; row >= 0; row-- {
		for col := 3; col >= 0; col-- {
			got := fb.ReadPixel(uint16(col+1), uint16(row+1))
			want := expected[row][col]
			if got != want {
				t.Errorf("ReadPixel(%d,%d) = %#x, want %#x", col+1, row+1, got, want)
			}
		}
	}
}

func TestFramebuffer_CopyRectOutOfBounds(t *testing.T) {
	fb := NewFramebuffer(4, 4)
	if err := fb.CopyRect(0, 0, 3, 3, 2, 2); err == nil {
		t.Fatal("expected out-of-bounds CopyRect to fail")
	}
}

func TestFramebuffer_DamageUnionsAcrossWrites(t *testing.T) {
	fb := NewFramebuffer(10, 10)

	if err := fb.Fill(0, 0, 2, 2, 1); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if err := fb.Fill(5, 5, 2, 2, 2); err != nil {
		t.Fatalf("Fill: %v", err)
	}

	damage := fb.TakeDamage()
	want := image.Rect(0, 0, 7, 7)
	if damage != want {
		t.Errorf("damage = %v, want %v", damage, want)
	}

	// TakeDamage clears the accumulator.
	if d := fb.TakeDamage(); !d.Empty() {
		t.Errorf("expected empty damage after TakeDamage, got %v", d)
	}
}

func TestFramebuffer_Size(t *testing.T) {
	fb := NewFramebuffer(800, 600)
	w, h := fb.Size()
	if w != 800 || h != 600 {
		t.Errorf("Size() = (%d,%d), want (800,600)", w, h)
	}
}
