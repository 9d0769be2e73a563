// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import "fmt"

// RREEncoding (Rise-and-Run-length Encoding) fills a rectangle with a
// background color, then overpaints a list of solid-color subrectangles.
type RREEncoding struct{}

const maxRRESubrects = 1_000_000

// Type returns the RFB encoding-type identifier for RRE.
func (*RREEncoding) Type() int32 {
	return 2
}

// Decode reads the background color and subrectangle list and applies them
// to fb, in that order, so subrectangles overpaint the background.
func (*RREEncoding) Decode(t *transport, pf *PixelFormat, rect Rectangle, fb *Framebuffer) error {
	numSubrects, err := t.readU32()
	if err != nil {
		return err
	}
	if numSubrects > maxRRESubrects {
		return encodingError("RREEncoding.Decode", fmt.Sprintf("too many subrectangles: %d", numSubrects), nil)
	}

	bg, err := readOnePixel(t, pf)
	if err != nil {
		return err
	}
	if err := fb.Fill(rect.X, rect.Y, rect.Width, rect.Height, bg); err != nil {
		return err
	}

	validator := newInputValidator()
	for i := uint32(0); i < numSubrects; i++ {
		color, err := readOnePixel(t, pf)
		if err != nil {
			return err
		}

		coords, err := t.readScratch(8)
		if err != nil {
			return err
		}
		sx := uint16(coords[0])<<8 | uint16(coords[1])
		sy := uint16(coords[2])<<8 | uint16(coords[3])
		sw := uint16(coords[4])<<8 | uint16(coords[5])
		sh := uint16(coords[6])<<8 | uint16(coords[7])

		if err := validator.ValidateRectangle(sx, sy, sw, sh, rect.Width, rect.Height); err != nil {
			return malformedUpdateError("RREEncoding.Decode", "subrectangle exceeds parent rectangle", err)
		}

		if err := fb.Fill(rect.X+sx, rect.Y+sy, sw, sh, color); err != nil {
			return err
		}
	}

	return nil
}
