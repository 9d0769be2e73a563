// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import "fmt"

// CoRREEncoding is RRE with subrectangle coordinates and dimensions packed
// into single bytes instead of u16, since a CoRRE rectangle is bounded to
// 255x255 (a server splits larger rectangles before using this encoding).
type CoRREEncoding struct{}

const maxCoRRESubrects = 1_000_000

// Type returns the RFB encoding-type identifier for CoRRE.
func (*CoRREEncoding) Type() int32 {
	return 4
}

// Decode reads the background color and byte-sized subrectangle list and
// applies them to fb in the same order as RRE.
func (*CoRREEncoding) Decode(t *transport, pf *PixelFormat, rect Rectangle, fb *Framebuffer) error {
	if rect.Width > 255 || rect.Height > 255 {
		return encodingError("CoRREEncoding.Decode", "rectangle exceeds 255x255 CoRRE bound", nil)
	}

	numSubrects, err := t.readU32()
	if err != nil {
		return err
	}
	if numSubrects > maxCoRRESubrects {
		return encodingError("CoRREEncoding.Decode", fmt.Sprintf("too many subrectangles: %d", numSubrects), nil)
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

		coords, err := t.readScratch(4)
		if err != nil {
			return err
		}
		sx, sy, sw, sh := coords[0], coords[1], coords[2], coords[3]

		if err := validator.ValidateRectangle(uint16(sx), uint16(sy), uint16(sw), uint16(sh),
			rect.Width, rect.Height); err != nil {
			return malformedUpdateError("CoRREEncoding.Decode", "subrectangle exceeds parent rectangle", err)
		}

		if err := fb.Fill(rect.X+uint16(sx), rect.Y+uint16(sy), uint16(sw), uint16(sh), color); err != nil {
			return err
		}
	}

	return nil
}
