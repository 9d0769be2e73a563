// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

// Package vnc implements an RFB 3.3 VNC client.
//
// It speaks the fixed, single-security-type handshake of RFB protocol
// version 3.3: the server chooses exactly one of None, VNC Authentication,
// or outright rejection, and the client always answers the version exchange
// with "RFB 003.003\n" regardless of what the server advertises. Decoded
// framebuffer updates, bell, clipboard, and cursor-shape notifications are
// delivered to an application-supplied FrameSink rather than a message
// channel, so a caller never parses wire messages itself.
//
// # Basic usage
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	config := vnc.NewClientConfig()
//	config.Password = vnc.StaticPassword("secret")
//	config.FrameSink = myFrameSink{}
//
//	client, err := vnc.Connect(ctx, "tcp", "localhost:5900", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// # Framebuffer updates
//
// Implement FrameSink to receive decoded updates on the session's own
// reader goroutine:
//
//	type myFrameSink struct{}
//
//	func (myFrameSink) OnConnect(width, height uint16, desktopName string) {}
//	func (myFrameSink) OnFramebufferUpdate(fb *vnc.Framebuffer, damage image.Rectangle) {}
//	func (myFrameSink) OnBell()                 {}
//	func (myFrameSink) OnCutText(text string)   {}
//	func (myFrameSink) OnCursor(w, h, x, y uint16, pixels []uint32, mask []byte) {}
//	func (myFrameSink) OnDisconnect(err error)  {}
//
// # Input events
//
//	client.KeyEvent(0x0061, true)  // 'a' key down
//	client.KeyEvent(0x0061, false) // 'a' key up
//
//	client.SendKey('a', 0)                 // translated tap, via the session's Keymap
//	client.SendKey('e', vnc.ModAltGr|vnc.ModControl|vnc.ModAlt) // AltGr combo: Ctrl/Alt released around it
//	client.SendText("hello")               // convenience wrapper over SendKey
//
//	client.PointerEvent(vnc.ButtonLeft, 100, 100) // click
//	client.PointerEvent(0, 100, 100)              // release
//
// # Error handling
//
//	if vnc.IsVNCError(err, vnc.ErrAuthentication) {
//		log.Printf("authentication failed: %v", err)
//	}
package vnc
