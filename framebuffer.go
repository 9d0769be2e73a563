// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"image"
	"sync"
)

// Framebuffer owns the session's W×H local pixel array. It is written by the
// reader task only and read by the FrameSink under the bitmap lock, matching
// the single-mutex discipline described for the shared framebuffer.
type Framebuffer struct {
	mu     sync.Mutex
	width  uint16
	height uint16
	pixels []uint32
	dirty  image.Rectangle
}

// NewFramebuffer allocates a framebuffer of the given dimensions, as
// negotiated once from ServerInit. Dimensions are fixed for the life of the
// session; server-side geometry change is not supported.
func NewFramebuffer(width, height uint16) *Framebuffer {
	return &Framebuffer{
		width:  width,
		height: height,
		pixels: make([]uint32, int(width)*int(height)),
	}
}

// Size returns the framebuffer's fixed dimensions.
func (fb *Framebuffer) Size() (width, height uint16) {
	return fb.width, fb.height
}

// inBounds reports whether the rectangle (x,y,w,h) fits entirely within
// [0,width) x [0,height). A zero-width or zero-height rectangle is reported
// as out of bounds.
func (fb *Framebuffer) inBounds(x, y, w, h uint16) bool {
	if w == 0 || h == 0 {
		return false
	}
	if x >= fb.width || y >= fb.height {
		return false
	}
	ex := uint32(x) + uint32(w)
	ey := uint32(y) + uint32(h)
	return ex <= uint32(fb.width) && ey <= uint32(fb.height)
}

// Fill paints the rectangle (x,y,w,h) with a single ARGB color. Returns
// MalformedUpdate if the rectangle is out of bounds.
func (fb *Framebuffer) Fill(x, y, w, h uint16, color uint32) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if !fb.inBounds(x, y, w, h) {
		return malformedUpdateError("Framebuffer.Fill", "rectangle out of bounds", nil)
	}

	stride := int(fb.width)
	for row := 0; row < int(h); row++ {
		base := (int(y)+row)*stride + int(x)
		rowSlice := fb.pixels[base : base+int(w)]
		for i := range rowSlice {
			rowSlice[i] = color
		}
	}

	fb.union(x, y, w, h)
	return nil
}

// PutPixels writes a row-major w*h array of local ARGB pixels starting at
// (x,y). Returns MalformedUpdate if the rectangle is out of bounds or src is
// short.
func (fb *Framebuffer) PutPixels(x, y, w, h uint16, src []uint32) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if !fb.inBounds(x, y, w, h) {
		return malformedUpdateError("Framebuffer.PutPixels", "rectangle out of bounds", nil)
	}
	if len(src) < int(w)*int(h) {
		return malformedUpdateError("Framebuffer.PutPixels", "pixel payload shorter than rectangle", nil)
	}

	stride := int(fb.width)
	for row := 0; row < int(h); row++ {
		base := (int(y)+row)*stride + int(x)
		copy(fb.pixels[base:base+int(w)], src[row*int(w):(row+1)*int(w)])
	}

	fb.union(x, y, w, h)
	return nil
}

// CopyRect copies a w*h rectangle from (srcX,srcY) to (dstX,dstY) within the
// same framebuffer, handling overlap the way memmove does: the row iteration
// direction is chosen from the sign of dst-src so that a read never observes
// data already clobbered by an earlier write in the same operation.
func (fb *Framebuffer) CopyRect(srcX, srcY, dstX, dstY, w, h uint16) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if !fb.inBounds(srcX, srcY, w, h) || !fb.inBounds(dstX, dstY, w, h) {
		return malformedUpdateError("Framebuffer.CopyRect", "copy rectangle out of bounds", nil)
	}

	stride := int(fb.width)
	rowLen := int(w)

	if dstY < srcY || (dstY == srcY && dstX <= srcX) {
		for row := 0; row < int(h); row++ {
			srcBase := (int(srcY)+row)*stride + int(srcX)
			dstBase := (int(dstY)+row)*stride + int(dstX)
			copy(fb.pixels[dstBase:dstBase+rowLen], fb.pixels[srcBase:srcBase+rowLen])
		}
	} else {
		for row := int(h) - 1; row >= 0; row-- {
			srcBase := (int(srcY)+row)*stride + int(srcX)
			dstBase := (int(dstY)+row)*stride + int(dstX)
			copy(fb.pixels[dstBase:dstBase+rowLen], fb.pixels[srcBase:srcBase+rowLen])
		}
	}

	fb.union(dstX, dstY, w, h)
	return nil
}

// ReadPixel returns the local ARGB pixel at (x,y), for the FrameSink blitter.
func (fb *Framebuffer) ReadPixel(x, y uint16) uint32 {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if x >= fb.width || y >= fb.height {
		return 0
	}
	return fb.pixels[int(y)*int(fb.width)+int(x)]
}

// union merges the given rectangle into the dirty-region accumulator. Caller
// must hold fb.mu.
func (fb *Framebuffer) union(x, y, w, h uint16) {
	r := image.Rect(int(x), int(y), int(x)+int(w), int(y)+int(h))
	if fb.dirty.Empty() {
		fb.dirty = r
	} else {
		fb.dirty = fb.dirty.Union(r)
	}
}

// TakeDamage returns and clears the accumulated dirty region.
func (fb *Framebuffer) TakeDamage() image.Rectangle {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	d := fb.dirty
	fb.dirty = image.Rectangle{}
	return d
}
