// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// PixelFormat describes how pixel color data is encoded and interpreted in a VNC connection.
type PixelFormat struct {
	// BPP (bits-per-pixel) specifies how many bits are used to represent each pixel.
	BPP uint8

	// Depth specifies the number of useful bits within each pixel value.
	Depth uint8

	// BigEndian determines the byte order for multi-byte pixel values.
	BigEndian bool

	// TrueColor determines whether pixels represent direct RGB values (true)
	// or indices into a color map (false).
	TrueColor bool

	// RedMax specifies the maximum value for the red color component.
	RedMax uint16

	// GreenMax specifies the maximum value for the green color component.
	GreenMax uint16

	// BlueMax specifies the maximum value for the blue color component.
	BlueMax uint16

	// RedShift specifies how many bits to right-shift a pixel value
	// to position the red color component at the least significant bits.
	RedShift uint8

	// GreenShift specifies how many bits to right-shift a pixel value
	// to position the green color component at the least significant bits.
	GreenShift uint8

	// BlueShift specifies how many bits to right-shift a pixel value
	// to position the blue color component at the least significant bits.
	BlueShift uint8
}

// writePixelFormat converts a PixelFormat to its wire format representation.
// Returns the 16-byte pixel format structure as defined in RFC 6143.
func writePixelFormat(format *PixelFormat) ([]byte, error) {
	var buf bytes.Buffer

	// Byte 1
	if err := binary.Write(&buf, binary.BigEndian, format.BPP); err != nil {
		return nil, encodingError("writePixelFormat", "failed to write BPP field", err)
	}

	// Byte 2
	if err := binary.Write(&buf, binary.BigEndian, format.Depth); err != nil {
		return nil, encodingError("writePixelFormat", "failed to write depth field", err)
	}

	var boolByte byte
	if format.BigEndian {
		boolByte = 1
	} else {
		boolByte = 0
	}

	// Byte 3 (BigEndian)
	if err := binary.Write(&buf, binary.BigEndian, boolByte); err != nil {
		return nil, encodingError("writePixelFormat", "failed to write big endian flag", err)
	}

	if format.TrueColor {
		boolByte = 1
	} else {
		boolByte = 0
	}

	// Byte 4 (TrueColor)
	if err := binary.Write(&buf, binary.BigEndian, boolByte); err != nil {
		return nil, encodingError("writePixelFormat", "failed to write true color flag", err)
	}

	// If we have true color enabled then we have to fill in the rest of the
	// structure with the color values.
	if format.TrueColor {
		if err := binary.Write(&buf, binary.BigEndian, format.RedMax); err != nil {
			return nil, encodingError("writePixelFormat", "failed to write red max value", err)
		}

		if err := binary.Write(&buf, binary.BigEndian, format.GreenMax); err != nil {
			return nil, encodingError("writePixelFormat", "failed to write green max value", err)
		}

		if err := binary.Write(&buf, binary.BigEndian, format.BlueMax); err != nil {
			return nil, encodingError("writePixelFormat", "failed to write blue max value", err)
		}

		if err := binary.Write(&buf, binary.BigEndian, format.RedShift); err != nil {
			return nil, encodingError("writePixelFormat", "failed to write red shift value", err)
		}

		if err := binary.Write(&buf, binary.BigEndian, format.GreenShift); err != nil {
			return nil, encodingError("writePixelFormat", "failed to write green shift value", err)
		}

		if err := binary.Write(&buf, binary.BigEndian, format.BlueShift); err != nil {
			return nil, encodingError("writePixelFormat", "failed to write blue shift value", err)
		}
	}

	out := make([]byte, 16)
	copy(out, buf.Bytes())
	return out, nil
}

// PixelFormatValidationError represents a pixel format validation error with detailed context.
type PixelFormatValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

// Error returns the formatted error message for pixel format validation errors.
func (e *PixelFormatValidationError) Error() string {
	return fmt.Sprintf("pixel format validation failed for field %s: %s (value: %v)",
		e.Field, e.Message, e.Value)
}

// Validate performs comprehensive validation of a pixel format according to RFC 6143.
// It checks all fields for consistency and validity, returning detailed error information
// if any validation rules are violated.
func (pf *PixelFormat) Validate() error {
	// Validate BPP (bits per pixel)
	if pf.BPP == 0 {
		return &PixelFormatValidationError{
			Field:   "BPP",
			Value:   pf.BPP,
			Rule:    "BPP must be greater than 0",
			Message: "bits per pixel cannot be zero",
		}
	}

	if pf.BPP != 8 && pf.BPP != 16 && pf.BPP != 32 {
		return &PixelFormatValidationError{
			Field:   "BPP",
			Value:   pf.BPP,
			Rule:    "BPP must be 8, 16, or 32",
			Message: "bits per pixel must be 8, 16, or 32",
		}
	}

	// Validate Depth
	if pf.Depth == 0 {
		return &PixelFormatValidationError{
			Field:   "Depth",
			Value:   pf.Depth,
			Rule:    "Depth must be greater than 0",
			Message: "color depth cannot be zero",
		}
	}

	if pf.Depth > pf.BPP {
		return &PixelFormatValidationError{
			Field:   "Depth",
			Value:   pf.Depth,
			Rule:    "Depth cannot exceed BPP",
			Message: fmt.Sprintf("color depth (%d) cannot exceed bits per pixel (%d)", pf.Depth, pf.BPP),
		}
	}

	// Validate TrueColor mode specific fields
	if pf.TrueColor {
		// Validate color maximums
		if pf.RedMax == 0 && pf.GreenMax == 0 && pf.BlueMax == 0 {
			return &PixelFormatValidationError{
				Field:   "ColorMax",
				Value:   fmt.Sprintf("R:%d G:%d B:%d", pf.RedMax, pf.GreenMax, pf.BlueMax),
				Rule:    "At least one color component must have non-zero maximum in TrueColor mode",
				Message: "all color maximums cannot be zero in true color mode",
			}
		}

		// Validate shifts don't exceed BPP
		maxShift := pf.BPP - 1
		if pf.RedShift > maxShift {
			return &PixelFormatValidationError{
				Field:   "RedShift",
				Value:   pf.RedShift,
				Rule:    fmt.Sprintf("RedShift cannot exceed %d for %d-bit pixels", maxShift, pf.BPP),
				Message: fmt.Sprintf("red shift (%d) exceeds maximum for %d-bit pixels", pf.RedShift, pf.BPP),
			}
		}
		if pf.GreenShift > maxShift {
			return &PixelFormatValidationError{
				Field:   "GreenShift",
				Value:   pf.GreenShift,
				Rule:    fmt.Sprintf("GreenShift cannot exceed %d for %d-bit pixels", maxShift, pf.BPP),
				Message: fmt.Sprintf("green shift (%d) exceeds maximum for %d-bit pixels", pf.GreenShift, pf.BPP),
			}
		}
		if pf.BlueShift > maxShift {
			return &PixelFormatValidationError{
				Field:   "BlueShift",
				Value:   pf.BlueShift,
				Rule:    fmt.Sprintf("BlueShift cannot exceed %d for %d-bit pixels", maxShift, pf.BPP),
				Message: fmt.Sprintf("blue shift (%d) exceeds maximum for %d-bit pixels", pf.BlueShift, pf.BPP),
			}
		}

		// Validate color component bit ranges don't overlap
		redBits := countBits(pf.RedMax)
		greenBits := countBits(pf.GreenMax)
		blueBits := countBits(pf.BlueMax)

		if redBits+greenBits+blueBits > pf.Depth {
			return &PixelFormatValidationError{
				Field:   "ColorBits",
				Value:   fmt.Sprintf("R:%d G:%d B:%d (total:%d)", redBits, greenBits, blueBits, redBits+greenBits+blueBits),
				Rule:    fmt.Sprintf("Total color bits cannot exceed depth (%d)", pf.Depth),
				Message: fmt.Sprintf("total color component bits (%d) exceed color depth (%d)", redBits+greenBits+blueBits, pf.Depth),
			}
		}
	}

	return nil
}

// countBits counts the number of bits needed to represent the given maximum value.
// Returns 0 for input 0, otherwise returns the position of the highest set bit + 1.
func countBits(maxVal uint16) uint8 {
	if maxVal == 0 {
		return 0
	}
	bits := uint8(0)
	for maxVal > 0 {
		maxVal >>= 1
		bits++
	}
	return bits
}

// Common pixel format presets for easy configuration.
var (
	// PixelFormat32BitRGBA represents high-quality 32-bit RGBA true color format.
	// This format provides the best color fidelity but uses the most bandwidth.
	PixelFormat32BitRGBA = &PixelFormat{
		BPP:        32,
		Depth:      24,
		BigEndian:  false,
		TrueColor:  true,
		RedMax:     255,
		GreenMax:   255,
		BlueMax:    255,
		RedShift:   16,
		GreenShift: 8,
		BlueShift:  0,
	}

	// PixelFormat16BitRGB565 represents balanced 16-bit RGB565 true color format.
	// This format provides good color quality with moderate bandwidth usage.
	PixelFormat16BitRGB565 = &PixelFormat{
		BPP:        16,
		Depth:      16,
		BigEndian:  false,
		TrueColor:  true,
		RedMax:     31,
		GreenMax:   63,
		BlueMax:    31,
		RedShift:   11,
		GreenShift: 5,
		BlueShift:  0,
	}

	// PixelFormatBGR233 is the client's fallback low-bandwidth preset: 8 bits
	// per pixel, 3 bits red, 3 bits green, 2 bits blue. Selected when the
	// caller requests 8-bit mode via the Use8Bit option.
	PixelFormatBGR233 = &PixelFormat{
		BPP:        8,
		Depth:      8,
		BigEndian:  false,
		TrueColor:  true,
		RedMax:     7,
		GreenMax:   7,
		BlueMax:    3,
		RedShift:   0,
		GreenShift: 3,
		BlueShift:  6,
	}

	// PixelFormatRGB565LE is the client's preferred true-color preset when the
	// server does not already advertise a usable true-color format: 16 bits
	// per pixel, little-endian on the wire.
	PixelFormatRGB565LE = PixelFormat16BitRGB565
)

// ToARGB maps a raw server pixel value (already extracted from the wire in
// the format's declared endianness) to a local 32-bit ARGB pixel using the
// channel (max, shift) triples. Matches the core color-mapping formula:
// r = ((p >> r.shift) & r.max) * 255 / r.max, alpha forced opaque.
func (pf *PixelFormat) ToARGB(raw uint32) uint32 {
	if !pf.TrueColor {
		return 0xFF000000
	}

	var r, g, b uint32
	if pf.RedMax > 0 {
		r = ((raw >> pf.RedShift) & uint32(pf.RedMax)) * 255 / uint32(pf.RedMax)
	}
	if pf.GreenMax > 0 {
		g = ((raw >> pf.GreenShift) & uint32(pf.GreenMax)) * 255 / uint32(pf.GreenMax)
	}
	if pf.BlueMax > 0 {
		b = ((raw >> pf.BlueShift) & uint32(pf.BlueMax)) * 255 / uint32(pf.BlueMax)
	}

	return 0xFF000000 | (r << 16) | (g << 8) | b
}

// MinBytesPerPixel returns ceil(bpp/8), the number of wire bytes a single
// pixel occupies in this format.
func (pf *PixelFormat) MinBytesPerPixel() int {
	return (int(pf.BPP) + 7) / 8
}
