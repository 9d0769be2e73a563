// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

// RawEncoding is the universal fallback encoding: the rectangle's pixels are
// sent verbatim, row-major, in the negotiated pixel format.
type RawEncoding struct{}

// Type returns the RFB encoding-type identifier for Raw.
func (*RawEncoding) Type() int32 {
	return 0
}

// Decode reads exactly w*h*min_bytes_per_pixel bytes and writes them into fb.
func (*RawEncoding) Decode(t *transport, pf *PixelFormat, rect Rectangle, fb *Framebuffer) error {
	pixels, err := readRawPixels(t, pf, rect.Width, rect.Height)
	if err != nil {
		return err
	}
	return fb.PutPixels(rect.X, rect.Y, rect.Width, rect.Height, pixels)
}
