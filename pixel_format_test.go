// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import "testing"

// TestPixelFormat_ToARGB_RGB565 covers S3: the four canonical RGB565 pixels
// (pure red, green, blue, white) must map to the documented ARGB formula.
func TestPixelFormat_ToARGB_RGB565(t *testing.T) {
	pf := PixelFormatRGB565LE

	cases := []struct {
		raw  uint32
		want uint32
	}{
		{0xF800, 0xFFFF0000}, // pure red
		{0x07E0, 0xFF00FF00}, // pure green
		{0x001F, 0xFF0000FF}, // pure blue
		{0xFFFF, 0xFFFFFFFF}, // white
	}

	for _, c := range cases {
		if got := pf.ToARGB(c.raw); got != c.want {
			t.Errorf("ToARGB(%#04x) = %#08x, want %#08x", c.raw, got, c.want)
		}
	}
}

func TestPixelFormat_ToARGB_BGR233(t *testing.T) {
	pf := PixelFormatBGR233

	// All bits set: R=7/7, G=7/7, B=3/3 -> pure white.
	if got := pf.ToARGB(0xFF); got != 0xFFFFFFFF {
		t.Errorf("ToARGB(0xFF) = %#08x, want 0xFFFFFFFF", got)
	}
	if got := pf.ToARGB(0x00); got != 0xFF000000 {
		t.Errorf("ToARGB(0x00) = %#08x, want 0xFF000000 (opaque black)", got)
	}
}

func TestPixelFormat_ToARGB_NonTrueColorIsOpaqueBlack(t *testing.T) {
	pf := &PixelFormat{BPP: 8, Depth: 8, TrueColor: false}
	if got := pf.ToARGB(0x42); got != 0xFF000000 {
		t.Errorf("ToARGB on non-true-color format = %#08x, want 0xFF000000", got)
	}
}

func TestPixelFormat_MinBytesPerPixel(t *testing.T) {
	cases := map[uint8]int{8: 1, 16: 2, 32: 4}
	for bpp, want := range cases {
		pf := &PixelFormat{BPP: bpp}
		if got := pf.MinBytesPerPixel(); got != want {
			t.Errorf("MinBytesPerPixel(bpp=%d) = %d, want %d", bpp, got, want)
		}
	}
}

func TestPixelFormat_WriteReadRoundTrip(t *testing.T) {
	for _, pf := range []*PixelFormat{PixelFormatRGB565LE, PixelFormatBGR233, PixelFormat32BitRGBA} {
		wire, err := writePixelFormat(pf)
		if err != nil {
			t.Fatalf("writePixelFormat: %v", err)
		}
		if len(wire) != 16 {
			t.Fatalf("writePixelFormat produced %d bytes, want 16", len(wire))
		}

		got, err := decodeServerPixelFormat(wire)
		if err != nil {
			t.Fatalf("decodeServerPixelFormat: %v", err)
		}
		if got != *pf {
			t.Errorf("round-trip mismatch: got %+v, want %+v", got, *pf)
		}
	}
}

func TestNegotiatePixelFormat(t *testing.T) {
	serverTrueColor32 := PixelFormat{BPP: 32, Depth: 24, TrueColor: true, BigEndian: true,
		RedMax: 255, GreenMax: 255, BlueMax: 255, RedShift: 16, GreenShift: 8, BlueShift: 0}
	serverIndexed := PixelFormat{BPP: 8, Depth: 8, TrueColor: false}

	// Server already true-color with bpp >= 8: prefer its format, but force
	// little-endian on the wire since the client always requests BigEndian=0.
	got := negotiatePixelFormat(serverTrueColor32, false)
	if got.BigEndian {
		t.Error("negotiated format must always request BigEndian=false")
	}
	if got.BPP != 32 || got.RedMax != 255 {
		t.Errorf("expected to keep server's true-color format, got %+v", got)
	}

	// Server not true-color: upgrade to RGB565.
	got = negotiatePixelFormat(serverIndexed, false)
	if got != *PixelFormatRGB565LE {
		t.Errorf("expected RGB565 upgrade for non-true-color server, got %+v", got)
	}

	// Use8Bit forces BGR233 regardless of what the server advertises.
	got = negotiatePixelFormat(serverTrueColor32, true)
	if got != *PixelFormatBGR233 {
		t.Errorf("expected BGR233 when Use8Bit is set, got %+v", got)
	}
}

func TestPixelFormat_ValidatePresets(t *testing.T) {
	for name, pf := range map[string]*PixelFormat{
		"RGB565": PixelFormatRGB565LE,
		"BGR233": PixelFormatBGR233,
		"RGBA32": PixelFormat32BitRGBA,
	} {
		if err := pf.Validate(); err != nil {
			t.Errorf("%s: Validate() = %v, want nil", name, err)
		}
	}
}

func TestPixelFormat_ValidateRejectsBadBPP(t *testing.T) {
	pf := &PixelFormat{BPP: 24, Depth: 24, TrueColor: true, RedMax: 255, GreenMax: 255, BlueMax: 255}
	if err := pf.Validate(); err == nil {
		t.Fatal("expected Validate to reject a non-8/16/32 BPP")
	}
}
