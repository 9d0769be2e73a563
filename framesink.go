// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import "image"

// FrameSink receives the host-visible effects of a running session: the
// framebuffer and its damage region, the bell, clipboard changes, and cursor
// updates. Implementations are called from the reader task and must not
// block it for long; expensive rendering should be handed off.
type FrameSink interface {
	// OnConnect is called once, after ServerInit, with the negotiated
	// framebuffer dimensions and desktop name.
	OnConnect(width, height uint16, desktopName string)

	// OnFramebufferUpdate is called after a FramebufferUpdate message has
	// been fully applied to fb. damage is the union of rectangles touched
	// by this update, in framebuffer coordinates.
	OnFramebufferUpdate(fb *Framebuffer, damage image.Rectangle)

	// OnBell is called when the server requests an audible bell.
	OnBell()

	// OnCutText is called when the server's clipboard contents change.
	OnCutText(text string)

	// OnCursor is called when the server sends a cursor shape update. A
	// width or height of zero means the cursor should be hidden.
	OnCursor(width, height, hotspotX, hotspotY uint16, pixels []uint32, mask []byte)

	// OnDisconnect is called exactly once when the session ends, with the
	// error that ended it; a driver-requested Close is reported as an
	// ErrUserAbort error.
	OnDisconnect(err error)
}

// NoOpFrameSink discards every callback. It is the default sink when none is
// configured, so a caller that only wants to drive input never has to
// implement the full interface.
type NoOpFrameSink struct{}

func (NoOpFrameSink) OnConnect(width, height uint16, desktopName string)             {}
func (NoOpFrameSink) OnFramebufferUpdate(fb *Framebuffer, damage image.Rectangle)     {}
func (NoOpFrameSink) OnBell()                                                        {}
func (NoOpFrameSink) OnCutText(text string)                                          {}
func (NoOpFrameSink) OnCursor(w, h, hx, hy uint16, pixels []uint32, mask []byte)      {}
func (NoOpFrameSink) OnDisconnect(err error)                                         {}

// PasswordProvider supplies the password used for VNC authentication
// (security scheme 2). It is consulted lazily, only when the server actually
// requests that scheme, so a caller that never expects password auth need
// not implement it.
type PasswordProvider interface {
	Password() (string, error)
}

// StaticPassword is a PasswordProvider that always returns the same password.
type StaticPassword string

// Password returns the static password.
func (s StaticPassword) Password() (string, error) {
	return string(s), nil
}
