// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

// Hextile subencoding bit masks, as defined in RFC 6143 Section 7.7.4.
const (
	HextileRaw                 = 1
	HextileBackgroundSpecified = 2
	HextileForegroundSpecified = 4
	HextileAnySubrects         = 8
	HextileSubrectsColoured    = 16

	hextileTileSize    = 16
	maxSubrectsPerTile = 255
)

// HextileEncoding tiles a rectangle into 16x16 (or smaller, at the right/
// bottom edges) tiles, each independently raw-encoded or background-filled
// and overpainted with a list of foreground subrectangles.
type HextileEncoding struct{}

// Type returns the RFB encoding-type identifier for Hextile.
func (*HextileEncoding) Type() int32 {
	return 5
}

// Decode walks the tile grid in row-major order, writing each tile into fb
// as it is decoded. Background and foreground persist across tiles within
// this rectangle and are undefined at the start, matching the invariant that
// a tile referencing an undefined color is a protocol error.
func (*HextileEncoding) Decode(t *transport, pf *PixelFormat, rect Rectangle, fb *Framebuffer) error {
	var background, foreground uint32
	var bgDefined, fgDefined bool

	for tileY := uint16(0); tileY < rect.Height; tileY += hextileTileSize {
		tileHeight := uint16(hextileTileSize)
		if tileY+tileHeight > rect.Height {
			tileHeight = rect.Height - tileY
		}

		for tileX := uint16(0); tileX < rect.Width; tileX += hextileTileSize {
			tileWidth := uint16(hextileTileSize)
			if tileX+tileWidth > rect.Width {
				tileWidth = rect.Width - tileX
			}

			x, y := rect.X+tileX, rect.Y+tileY

			subencoding, err := t.readU8()
			if err != nil {
				return err
			}

			if subencoding&HextileRaw != 0 {
				pixels, err := readRawPixels(t, pf, tileWidth, tileHeight)
				if err != nil {
					return err
				}
				if err := fb.PutPixels(x, y, tileWidth, tileHeight, pixels); err != nil {
					return err
				}
				continue
			}

			if subencoding&HextileBackgroundSpecified == 0 && !bgDefined {
				return malformedUpdateError("HextileEncoding.Decode",
					"tile relies on a background color before any background color was specified", nil)
			}
			if subencoding&HextileBackgroundSpecified != 0 {
				background, err = readOnePixel(t, pf)
				if err != nil {
					return err
				}
				bgDefined = true
			}
			if err := fb.Fill(x, y, tileWidth, tileHeight, background); err != nil {
				return err
			}

			if subencoding&HextileForegroundSpecified != 0 {
				foreground, err = readOnePixel(t, pf)
				if err != nil {
					return err
				}
				fgDefined = true
			}

			if subencoding&HextileAnySubrects == 0 {
				continue
			}

			if subencoding&HextileSubrectsColoured == 0 && !fgDefined {
				return malformedUpdateError("HextileEncoding.Decode",
					"tile uses foreground-colored subrects before any foreground color was specified", nil)
			}

			numSubrects, err := t.readU8()
			if err != nil {
				return err
			}
			if numSubrects > maxSubrectsPerTile {
				return encodingError("HextileEncoding.Decode", "too many subrectangles in tile", nil)
			}

			for i := uint8(0); i < numSubrects; i++ {
				color := foreground
				if subencoding&HextileSubrectsColoured != 0 {
					color, err = readOnePixel(t, pf)
					if err != nil {
						return err
					}
				}

				xy, err := t.readU8()
				if err != nil {
					return err
				}
				wh, err := t.readU8()
				if err != nil {
					return err
				}

				sx := (xy >> 4) & 0x0F
				sy := xy & 0x0F
				sw := ((wh >> 4) & 0x0F) + 1
				sh := (wh & 0x0F) + 1

				if uint16(sx)+uint16(sw) > tileWidth || uint16(sy)+uint16(sh) > tileHeight {
					return malformedUpdateError("HextileEncoding.Decode", "subrectangle extends outside tile bounds", nil)
				}

				if err := fb.Fill(x+uint16(sx), y+uint16(sy), uint16(sw), uint16(sh), color); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
