// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"
)

// ButtonMask represents the state of pointer buttons in a VNC pointer event.
type ButtonMask uint8

// Button mask constants for standard mouse buttons and scroll wheel events.
const (
	ButtonLeft ButtonMask = 1 << iota
	ButtonMiddle
	ButtonRight
	Button4
	Button5
	Button6
	Button7
	Button8
)

// RFB encoding-type identifiers for the five rectangle encodings this client
// understands, used both in SetEncodings and as map keys when dispatching a
// rectangle's payload to its decoder.
const (
	EncodingRaw      int32 = 0
	EncodingCopyRect int32 = 1
	EncodingRRE      int32 = 2
	EncodingCoRRE    int32 = 4
	EncodingHextile  int32 = 5
)

// Message size and limit constants from the wire protocol.
const (
	maxRectanglesPerUpdate   = 10000
	maxServerClipboardLength = 10 * 1024 * 1024
	maxClipboardLength       = 1024 * 1024
	maxDesktopNameLength     = 256
	maxErrorReasonLength     = 1024
)

// SessionState names a point in the session lifecycle
// Init -> VersionExchanged -> Authenticated -> Initialized -> Running ->
// (Reconfiguring -> Running)* -> Closed. Closed is terminal; any error from
// any state transitions directly to Closed.
type SessionState int

const (
	StateInit SessionState = iota
	StateVersionExchanged
	StateAuthenticated
	StateInitialized
	StateRunning
	StateReconfiguring
	StateClosed
)

// String returns a human-readable name for the session state.
func (s SessionState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateVersionExchanged:
		return "VersionExchanged"
	case StateAuthenticated:
		return "Authenticated"
	case StateInitialized:
		return "Initialized"
	case StateRunning:
		return "Running"
	case StateReconfiguring:
		return "Reconfiguring"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ClientConfig configures a session before the handshake runs. The zero
// value is a usable configuration: server-preferred pixel format, default
// encoding fallback order, an interactive session with a discarding
// FrameSink. The zero value sends ClientInit.shared=0 (an exclusive
// session); NewClientConfig, and a nil config, request a shared session.
type ClientConfig struct {
	// FrameSink receives decoded framebuffer updates, bell, clipboard, and
	// cursor notifications. Defaults to NoOpFrameSink when nil.
	FrameSink FrameSink

	// Password supplies the VNC authentication password, consulted only if
	// the server negotiates security scheme 2. A nil Password with scheme 2
	// sends an empty password, which the server will normally reject.
	Password PasswordProvider

	// Keymap translates a host virtual key code and modifier state into
	// keysym events for SendKey/SendText. Defaults to USKeymap when nil.
	Keymap Keymap

	// Logger receives structured diagnostics. Defaults to NoOpLogger when nil.
	Logger Logger

	// PreferredEncoding, if non-nil, is placed first in SetEncodings. Nil
	// uses the default fallback order (Hextile, CoRRE, RRE, CopyRect, Raw).
	PreferredEncoding *int32

	// AllowedEncodings restricts SetEncodings to this subset, in default
	// fallback order (after PreferredEncoding is applied). Nil allows all
	// five built-in encodings.
	AllowedEncodings []int32

	// Use8Bit forces the BGR233 8-bit pixel format instead of negotiating
	// against the server's advertised format.
	Use8Bit bool

	// Shared is sent as ClientInit.shared.
	Shared bool

	// ViewOnly suppresses PointerEvent, KeyEvent and CutText sends.
	ViewOnly bool

	// SwapMouse swaps pointer buttons 2 and 3 (middle/right).
	SwapMouse bool

	// DeiconifyOnBell logs an advisory note when the bell fires, for hosts
	// that want to raise/deiconify their window on an audible alert.
	DeiconifyOnBell bool

	// ConnectTimeout bounds Dial. Zero means no timeout.
	ConnectTimeout time.Duration

	// ReadTimeout, if nonzero, is applied to the underlying connection
	// before each session-loop message read.
	ReadTimeout time.Duration

	// WriteTimeout, if nonzero, is applied to the underlying connection
	// before each driver-initiated send.
	WriteTimeout time.Duration
}

// NewClientConfig returns a ClientConfig with the documented defaults: a
// shared session, the default encoding fallback order, and server-preferred
// pixel format negotiation.
func NewClientConfig() *ClientConfig {
	return &ClientConfig{
		Shared: true,
	}
}

func (cfg *ClientConfig) normalized() *ClientConfig {
	if cfg == nil {
		cfg = NewClientConfig()
	}
	out := *cfg
	if out.FrameSink == nil {
		out.FrameSink = NoOpFrameSink{}
	}
	if out.Keymap == nil {
		out.Keymap = USKeymap{}
	}
	if out.Logger == nil {
		out.Logger = &NoOpLogger{}
	}
	return &out
}

// ClientConn is an active, authenticated VNC session. The reader task (its
// own goroutine) owns the framebuffer and drives FrameSink callbacks; driver
// methods (PointerEvent, KeyEvent, CutText, SetPixelFormat, Refresh,
// SetDormant, Close) may be called concurrently from the caller's goroutine.
type ClientConn struct {
	t      *transport
	config *ClientConfig
	logger Logger
	keymap Keymap
	sink   FrameSink

	group *errgroup.Group

	mu              sync.Mutex
	state           SessionState
	pf              PixelFormat
	width, height   uint16
	desktopName     string
	encodingOrder   []int32
	dormant         bool
	pendingFormat   *PixelFormat
	closeRequested  bool
	heldModifiers   map[uint32]bool

	fb *Framebuffer

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Connect dials address over TCP, honoring ClientConfig.ConnectTimeout, runs
// the handshake, and returns a running session. network is normally "tcp".
func Connect(ctx context.Context, network, address string, config *ClientConfig) (*ClientConn, error) {
	cfg := config.normalized()

	dialCtx := ctx
	var cancel context.CancelFunc
	if cfg.ConnectTimeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	conn, err := (&net.Dialer{}).DialContext(dialCtx, network, address)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return nil, hostnameUnresolvedError("Connect", fmt.Sprintf("could not resolve %s", address), err)
		}
		return nil, connectFailedError("Connect", fmt.Sprintf("could not connect to %s", address), err)
	}

	client, err := ClientWithContext(ctx, conn, config)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return client, nil
}

// Client runs the handshake over an already-connected transport using
// context.Background and returns a running session.
func Client(conn net.Conn, config *ClientConfig) (*ClientConn, error) {
	return ClientWithContext(context.Background(), conn, config)
}

// ClientWithContext runs the handshake (§4.5) synchronously, then spawns the
// session loop as the reader task. ctx is used only during the handshake,
// where it is checked for cancellation at the authentication step; it does
// not interrupt a read that is already blocked. The running session is
// cancelled via Close, not ctx.
func ClientWithContext(ctx context.Context, conn net.Conn, config *ClientConfig) (*ClientConn, error) {
	cfg := config.normalized()

	c := &ClientConn{
		t:      newTransport(conn),
		config: cfg,
		logger: cfg.Logger,
		keymap: cfg.Keymap,
		sink:   cfg.FrameSink,
		state:  StateInit,
		done:   make(chan struct{}),
	}

	if err := c.handshake(ctx); err != nil {
		return nil, err
	}

	var group errgroup.Group
	c.group = &group
	group.Go(c.sessionLoop)

	return c, nil
}

// handshake runs version exchange, authentication, ClientInit/ServerInit,
// SetPixelFormat and SetEncodings (§4.5), advancing through StateInit..
// StateInitialized. Any failure here is returned directly; no session loop
// is started.
func (c *ClientConn) handshake(ctx context.Context) error {
	if err := c.exchangeVersion(); err != nil {
		return err
	}
	c.state = StateVersionExchanged

	if err := c.authenticate(ctx); err != nil {
		return err
	}
	c.state = StateAuthenticated

	if err := c.t.writeU8(boolToByte(c.config.Shared)); err != nil {
		return err
	}

	if err := c.readServerInit(); err != nil {
		return err
	}

	pf := negotiatePixelFormat(c.pf, c.config.Use8Bit)
	if err := c.sendSetPixelFormat(pf); err != nil {
		return err
	}
	c.pf = pf

	order := buildEncodingOrder(c.config.PreferredEncoding, c.config.AllowedEncodings)
	if err := c.sendSetEncodings(order); err != nil {
		return err
	}
	c.encodingOrder = order

	c.state = StateInitialized
	c.fb = NewFramebuffer(c.width, c.height)
	c.sink.OnConnect(c.width, c.height, c.desktopName)

	return nil
}

// exchangeVersion reads the server's 12-byte ProtocolVersion and always
// responds with "RFB 003.003\n": this client implements RFB 3.3 only, per
// SPEC_FULL §5.5, regardless of what the server advertises.
func (c *ClientConn) exchangeVersion() error {
	buf, err := c.t.readScratch(12)
	if err != nil {
		return err
	}
	version := string(buf)

	validator := newInputValidator()
	if err := validator.ValidateProtocolVersion(version); err != nil {
		return protocolError("ClientConn.exchangeVersion", "malformed ProtocolVersion handshake", err)
	}

	c.logger.Debug("received ProtocolVersion", Field{Key: "version", Value: version})

	return c.t.writeAll([]byte("RFB 003.003\n"))
}

// authenticate reads scheme:u32 and performs the corresponding handshake
// (§4.5.2). RFB 3.3 fixes the scheme to a single value chosen by the
// server; there is no client-side negotiation among multiple offered types.
// The session loop has not started yet, so it is safe for the chosen
// ClientAuth to read and write the raw connection directly rather than
// going through the transport's lock discipline.
func (c *ClientConn) authenticate(ctx context.Context) error {
	scheme, err := c.t.readU32()
	if err != nil {
		return err
	}

	switch scheme {
	case 0:
		reasonLen, err := c.t.readU32()
		if err != nil {
			return err
		}
		if reasonLen > 0 {
			validator := newInputValidator()
			if err := validator.ValidateMessageLength(reasonLen, maxErrorReasonLength); err != nil {
				return protocolError("ClientConn.authenticate", "rejection reason length out of bounds", err)
			}
		}
		reasonBuf, err := c.t.readScratch(int(reasonLen))
		if err != nil {
			return err
		}
		reason := decodeLatin1(reasonBuf)
		return connectionRejectedError("ClientConn.authenticate", reason)

	case 1:
		auth := &ClientAuthNone{}
		auth.SetLogger(c.logger)
		return auth.Handshake(ctx, c.t.conn)

	case 2:
		password := ""
		if c.config.Password != nil {
			password, err = c.config.Password.Password()
			if err != nil {
				return authenticationError("ClientConn.authenticate", "password provider failed", err)
			}
		}
		auth := NewPasswordAuth(password)
		auth.SetLogger(c.logger)
		defer auth.ClearPassword()
		if err := auth.Handshake(ctx, c.t.conn); err != nil {
			return err
		}
		return c.readAuthResult()

	default:
		return unsupportedAuthError("ClientConn.authenticate",
			fmt.Sprintf("unsupported security scheme: %d", scheme), nil)
	}
}

// readAuthResult reads the SecurityResult that follows a VNC Authentication
// handshake (§4.5.2): 0 for OK, nonzero for failed.
func (c *ClientConn) readAuthResult() error {
	result, err := c.t.readU32()
	if err != nil {
		return err
	}
	if result != 0 {
		return authenticationError("ClientConn.readAuthResult", "server rejected VNC authentication", nil)
	}
	return nil
}

// readServerInit reads the fixed ServerInit header and the variable-length
// desktop name (§4.5.4), decoded as Latin-1 per the wire protocol's
// character set for text fields.
func (c *ClientConn) readServerInit() error {
	width, err := c.t.readU16()
	if err != nil {
		return err
	}
	height, err := c.t.readU16()
	if err != nil {
		return err
	}

	validator := newInputValidator()
	if err := validator.ValidateFramebufferDimensions(width, height); err != nil {
		return protocolError("ClientConn.readServerInit", "invalid framebuffer dimensions", err)
	}

	pfBuf, err := c.t.readScratch(16)
	if err != nil {
		return err
	}
	pf, err := decodeServerPixelFormat(pfBuf)
	if err != nil {
		return err
	}

	nameLen, err := c.t.readU32()
	if err != nil {
		return err
	}
	if nameLen > 0 {
		if err := validator.ValidateMessageLength(nameLen, maxDesktopNameLength); err != nil {
			return protocolError("ClientConn.readServerInit", "desktop name length out of bounds", err)
		}
	}
	nameBuf, err := c.t.readScratch(int(nameLen))
	if err != nil {
		return err
	}

	c.width, c.height = width, height
	c.pf = pf
	c.desktopName = decodeLatin1(nameBuf)
	return nil
}

// decodeServerPixelFormat parses the 16-byte wire PixelFormat structure from
// a byte slice already read off the transport.
func decodeServerPixelFormat(b []byte) (PixelFormat, error) {
	var pf PixelFormat
	validator := newInputValidator()
	if err := validator.ValidateBinaryData(b, 16, 16); err != nil {
		return pf, protocolError("decodeServerPixelFormat", "pixel format must be 16 bytes", err)
	}
	pf.BPP = b[0]
	pf.Depth = b[1]
	pf.BigEndian = b[2] != 0
	pf.TrueColor = b[3] != 0
	if pf.TrueColor {
		pf.RedMax = binary.BigEndian.Uint16(b[4:6])
		pf.GreenMax = binary.BigEndian.Uint16(b[6:8])
		pf.BlueMax = binary.BigEndian.Uint16(b[8:10])
		pf.RedShift = b[10]
		pf.GreenShift = b[11]
		pf.BlueShift = b[12]
	}
	if err := validator.ValidatePixelFormat(&pf); err != nil {
		return pf, protocolError("decodeServerPixelFormat", "server pixel format is invalid", err)
	}
	return pf, nil
}

// negotiatePixelFormat chooses the pixel format to request from the server
// (§4.2): BGR233 if 8-bit mode was requested, the server's own format if it
// is already true-color with bpp >= 8, otherwise RGB565 little-endian.
func negotiatePixelFormat(server PixelFormat, use8Bit bool) PixelFormat {
	if use8Bit {
		return *PixelFormatBGR233
	}
	if server.TrueColor && server.BPP >= 8 {
		chosen := server
		chosen.BigEndian = false
		return chosen
	}
	return *PixelFormatRGB565LE
}

// sendSetPixelFormat sends the SetPixelFormat message: type 0, 3 bytes
// padding, 16-byte pixel format (fixed size 20 per §6).
func (c *ClientConn) sendSetPixelFormat(pf PixelFormat) error {
	wire, err := writePixelFormat(&pf)
	if err != nil {
		return err
	}
	msg := make([]byte, 4, 20)
	msg[0] = 0
	msg = append(msg, wire...)
	return c.t.writeAll(msg)
}

// buildEncodingOrder produces the SetEncodings list: preferred first (if
// set and not filtered out), then the remaining built-ins in the
// deterministic fallback order Hextile, CoRRE, RRE, CopyRect, Raw, narrowed
// to allowed if non-nil.
func buildEncodingOrder(preferred *int32, allowed []int32) []int32 {
	order := []int32{EncodingHextile, EncodingCoRRE, EncodingRRE, EncodingCopyRect, EncodingRaw}

	if preferred != nil {
		reordered := make([]int32, 0, len(order))
		reordered = append(reordered, *preferred)
		for _, e := range order {
			if e != *preferred {
				reordered = append(reordered, e)
			}
		}
		order = reordered
	}

	if allowed == nil {
		return order
	}

	allowedSet := make(map[int32]bool, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = true
	}
	filtered := make([]int32, 0, len(order))
	for _, e := range order {
		if allowedSet[e] {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// sendSetEncodings sends the SetEncodings message: type 2, 1 byte padding,
// nEncodings:u16, then nEncodings int32 entries (fixed size 4 + 4*N per §6).
// The Cursor pseudo-encoding is always appended after order's real rectangle
// encodings so the server knows it may send cursor-shape updates; it is
// dispatched directly in handleFramebufferUpdate rather than through
// decoderFor, so it is kept out of c.encodingOrder's fallback bookkeeping.
func (c *ClientConn) sendSetEncodings(order []int32) error {
	full := make([]int32, 0, len(order)+1)
	full = append(full, order...)
	full = append(full, cursorEncodingType)

	msg := make([]byte, 4, 4+4*len(full))
	msg[0] = 2
	binary.BigEndian.PutUint16(msg[2:4], uint16(len(full)))
	for _, enc := range full {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(enc))
		msg = append(msg, buf[:]...)
	}
	return c.t.writeAll(msg)
}

// decoderFor returns the Encoding implementation for a negotiated encoding
// type, or nil if it was not included in the session's SetEncodings.
func (c *ClientConn) decoderFor(encodingType int32) Encoding {
	advertised := false
	for _, e := range c.encodingOrder {
		if e == encodingType {
			advertised = true
			break
		}
	}
	if !advertised {
		return nil
	}
	for _, enc := range defaultEncodings() {
		if enc.Type() == encodingType {
			return enc
		}
	}
	return nil
}

// sessionLoop is the reader task body: it requests the initial full update,
// then dispatches server messages until an error or orderly close ends it
// (§4.6). It runs on its own goroutine, started by ClientWithContext.
func (c *ClientConn) sessionLoop() error {
	c.mu.Lock()
	c.state = StateRunning
	c.mu.Unlock()

	err := c.runSessionLoop()

	c.mu.Lock()
	wasClosing := c.closeRequested
	c.state = StateClosed
	c.mu.Unlock()

	if err != nil && wasClosing && IsVNCError(err, ErrTransportClosed) {
		err = userAbortError("ClientConn.sessionLoop", "session closed by caller")
	}

	c.closeErr = err
	c.sink.OnDisconnect(err)
	close(c.done)
	return err
}

func (c *ClientConn) runSessionLoop() error {
	if err := c.requestUpdate(false); err != nil {
		return err
	}

	for {
		if c.config.ReadTimeout > 0 {
			_ = c.t.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		}

		msgType, err := c.t.readU8()
		if err != nil {
			return err
		}

		switch msgType {
		case 0:
			if err := c.handleFramebufferUpdate(); err != nil {
				return err
			}
		case 1:
			return unsupportedError("ClientConn.runSessionLoop", "SetColourMapEntries is not supported; core requires true color", nil)
		case 2:
			c.handleBell()
		case 3:
			if err := c.handleServerCutText(); err != nil {
				return err
			}
		default:
			return unsupportedError("ClientConn.runSessionLoop", fmt.Sprintf("unsupported server message type: %d", msgType), nil)
		}
	}
}

// handleFramebufferUpdate reads and applies one FramebufferUpdate message,
// then issues the next request: a full request if a format change is
// pending, otherwise an incremental request unless the session is dormant.
func (c *ClientConn) handleFramebufferUpdate() error {
	if _, err := c.t.readScratch(1); err != nil {
		return err
	}
	numRects, err := c.t.readU16()
	if err != nil {
		return err
	}
	if numRects > maxRectanglesPerUpdate {
		return protocolError("ClientConn.handleFramebufferUpdate",
			fmt.Sprintf("too many rectangles in update: %d", numRects), nil)
	}

	validator := newInputValidator()

	for i := uint16(0); i < numRects; i++ {
		header, err := c.t.readScratch(12)
		if err != nil {
			return err
		}
		rect := Rectangle{
			X:      binary.BigEndian.Uint16(header[0:2]),
			Y:      binary.BigEndian.Uint16(header[2:4]),
			Width:  binary.BigEndian.Uint16(header[4:6]),
			Height: binary.BigEndian.Uint16(header[6:8]),
		}
		encodingType := int32(binary.BigEndian.Uint32(header[8:12]))

		if encodingType == cursorEncodingType {
			pixels, mask, err := decodeCursor(c.t, &c.pf, rect)
			if err != nil {
				return err
			}
			c.sink.OnCursor(rect.Width, rect.Height, rect.X, rect.Y, pixels, mask)
			continue
		}

		if err := validator.ValidateEncodingType(encodingType); err != nil {
			return protocolError("ClientConn.handleFramebufferUpdate", "malformed encoding type", err)
		}

		if err := validator.ValidateRectangle(rect.X, rect.Y, rect.Width, rect.Height, c.width, c.height); err != nil {
			return malformedUpdateError("ClientConn.handleFramebufferUpdate", "rectangle exceeds framebuffer bounds", err)
		}

		dec := c.decoderFor(encodingType)
		if dec == nil {
			return unsupportedError("ClientConn.handleFramebufferUpdate",
				fmt.Sprintf("unsupported rectangle encoding: %d", encodingType), nil)
		}
		if err := dec.Decode(c.t, &c.pf, rect, c.fb); err != nil {
			return err
		}
	}

	damage := c.fb.TakeDamage()
	c.sink.OnFramebufferUpdate(c.fb, damage)

	c.mu.Lock()
	pending := c.pendingFormat
	c.pendingFormat = nil
	dormant := c.dormant
	c.mu.Unlock()

	if pending != nil {
		c.mu.Lock()
		c.state = StateReconfiguring
		c.mu.Unlock()
		if err := c.sendSetPixelFormat(*pending); err != nil {
			return err
		}
		c.pf = *pending
		if err := c.sendSetEncodings(c.encodingOrder); err != nil {
			return err
		}
		c.mu.Lock()
		c.state = StateRunning
		c.mu.Unlock()
		return c.requestUpdate(false)
	}

	if dormant {
		return nil
	}
	return c.requestUpdate(true)
}

func (c *ClientConn) handleBell() {
	if c.config.DeiconifyOnBell {
		c.logger.Info("bell received; deiconify advised")
	}
	c.sink.OnBell()
}

func (c *ClientConn) handleServerCutText() error {
	if _, err := c.t.readScratch(3); err != nil {
		return err
	}
	length, err := c.t.readU32()
	if err != nil {
		return err
	}

	if length > maxServerClipboardLength {
		return protocolError("ClientConn.handleServerCutText",
			fmt.Sprintf("clipboard text length %d exceeds maximum %d", length, maxServerClipboardLength), nil)
	}

	buf, err := c.t.readScratch(int(length))
	if err != nil {
		return err
	}

	validator := newInputValidator()
	text := decodeLatin1(buf)
	if err := validator.ValidateTextData(text, maxServerClipboardLength); err != nil {
		c.logger.Warn("sanitizing invalid clipboard text from server", Field{Key: "error", Value: err})
		text = validator.SanitizeText(text)
	}

	c.sink.OnCutText(text)
	return nil
}

// requestUpdate sends FramebufferUpdateRequest covering the whole
// framebuffer. incremental=false requests a full (non-incremental) update.
func (c *ClientConn) requestUpdate(incremental bool) error {
	msg := make([]byte, 10)
	msg[0] = 3
	msg[1] = boolToByte(incremental)
	binary.BigEndian.PutUint16(msg[2:4], 0)
	binary.BigEndian.PutUint16(msg[4:6], 0)
	binary.BigEndian.PutUint16(msg[6:8], c.width)
	binary.BigEndian.PutUint16(msg[8:10], c.height)
	return c.t.writeAll(msg)
}

// Refresh requests a full (non-incremental) framebuffer update, for a caller
// that wants to force a repaint (e.g. after a local display glitch).
func (c *ClientConn) Refresh() error {
	c.applyWriteDeadline()
	return c.requestUpdate(false)
}

// SetDormant suppresses (true) or resumes (false) the automatic incremental
// update request issued after each processed FramebufferUpdate. Resuming
// immediately issues one incremental request.
func (c *ClientConn) SetDormant(dormant bool) error {
	c.mu.Lock()
	wasDormant := c.dormant
	c.dormant = dormant
	c.mu.Unlock()

	if wasDormant && !dormant {
		c.applyWriteDeadline()
		return c.requestUpdate(true)
	}
	return nil
}

// SetPixelFormat requests a pixel-format change, applied by the reader task
// after the FramebufferUpdate currently in flight finishes, followed by a
// full update request (§4.6).
func (c *ClientConn) SetPixelFormat(pf PixelFormat) error {
	if err := pf.Validate(); err != nil {
		return validationError("ClientConn.SetPixelFormat", "invalid pixel format", err)
	}
	pf.BigEndian = false

	c.mu.Lock()
	c.pendingFormat = &pf
	c.mu.Unlock()
	return nil
}

// GetFrameBufferSize returns the negotiated, fixed framebuffer dimensions.
func (c *ClientConn) GetFrameBufferSize() (width, height uint16) {
	return c.width, c.height
}

// State returns the session's current lifecycle state.
func (c *ClientConn) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PointerEvent sends a pointer position and button-mask update (§4.7). A
// no-op under ViewOnly. swap_mouse exchanges the middle and right button
// bits before sending.
func (c *ClientConn) PointerEvent(buttonMask ButtonMask, x, y uint16) error {
	if c.config.ViewOnly {
		return nil
	}

	if c.config.SwapMouse {
		middle := buttonMask & ButtonMiddle
		right := buttonMask & ButtonRight
		buttonMask &^= ButtonMiddle | ButtonRight
		if middle != 0 {
			buttonMask |= ButtonRight
		}
		if right != 0 {
			buttonMask |= ButtonMiddle
		}
	}

	validator := newInputValidator()
	if err := validator.ValidatePointerPosition(x, y, c.width, c.height); err != nil {
		return validationError("ClientConn.PointerEvent", "pointer position out of bounds", err)
	}

	msg := make([]byte, 6)
	msg[0] = 5
	msg[1] = byte(buttonMask)
	binary.BigEndian.PutUint16(msg[2:4], x)
	binary.BigEndian.PutUint16(msg[4:6], y)

	c.applyWriteDeadline()
	return c.t.writeAll(msg)
}

// KeyEvent sends a key press (down=true) or release event for keysym (§4.7).
// A no-op under ViewOnly. Tracks modifier keysyms as held or released so
// OnFocusLost can release any still held.
func (c *ClientConn) KeyEvent(keysym uint32, down bool) error {
	if c.config.ViewOnly {
		return nil
	}

	validator := newInputValidator()
	if err := validator.ValidateKeySymbol(keysym); err != nil {
		return validationError("ClientConn.KeyEvent", "invalid keysym", err)
	}

	msg := make([]byte, 8)
	msg[0] = 4
	msg[1] = boolToByte(down)
	binary.BigEndian.PutUint32(msg[4:8], keysym)

	c.applyWriteDeadline()
	if err := c.t.writeAll(msg); err != nil {
		return err
	}

	c.trackModifier(keysym, down)
	return nil
}

// trackModifier records keysym as held or released if it is one of the
// modifier keys OnFocusLost releases on focus loss.
func (c *ClientConn) trackModifier(keysym uint32, down bool) {
	if !isModifierKeysym(keysym) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if down {
		if c.heldModifiers == nil {
			c.heldModifiers = make(map[uint32]bool)
		}
		c.heldModifiers[keysym] = true
	} else {
		delete(c.heldModifiers, keysym)
	}
}

// OnFocusLost releases every modifier keysym currently tracked as held
// (§4.7: "On focus loss, the sender emits releases for all tracked
// modifiers"). Call this when the host window loses input focus.
func (c *ClientConn) OnFocusLost() error {
	c.mu.Lock()
	held := make([]uint32, 0, len(c.heldModifiers))
	for keysym := range c.heldModifiers {
		held = append(held, keysym)
	}
	c.heldModifiers = nil
	c.mu.Unlock()

	for _, keysym := range held {
		if err := c.KeyEvent(keysym, false); err != nil {
			return err
		}
	}
	return nil
}

// CutText sends the local clipboard contents to the server as a
// ClientCutText message (§4.7), Latin-1 encoded. A no-op under ViewOnly.
func (c *ClientConn) CutText(text string) error {
	if c.config.ViewOnly {
		return nil
	}

	validator := newInputValidator()
	if err := validator.ValidateTextData(text, maxClipboardLength); err != nil {
		return validationError("ClientConn.CutText", "invalid clipboard text", err)
	}

	encoded, err := encodeLatin1(text)
	if err != nil {
		return encodingError("ClientConn.CutText", "text is not representable in Latin-1", err)
	}

	msg := make([]byte, 8, 8+len(encoded))
	msg[0] = 6
	binary.BigEndian.PutUint32(msg[4:8], uint32(len(encoded)))
	msg = append(msg, encoded...)

	c.applyWriteDeadline()
	return c.t.writeAll(msg)
}

// Close shuts down the transport (see transport.Shutdown), which ends the
// reader task's blocking read, then waits for the reader task to exit. On a
// connection that supports half-close the read sees TransportClosed and Close
// returns nil; otherwise the read's I/O error is returned. Safe to call more
// than once.
func (c *ClientConn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeRequested = true
		c.mu.Unlock()

		_ = c.t.Shutdown()
	})

	<-c.done
	if c.group != nil {
		_ = c.group.Wait()
	}
	if IsVNCError(c.closeErr, ErrUserAbort) {
		return nil
	}
	return c.closeErr
}

func (c *ClientConn) applyWriteDeadline() {
	if c.config.WriteTimeout > 0 {
		_ = c.t.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// decodeLatin1 converts Latin-1 (ISO-8859-1) wire bytes to a UTF-8 Go
// string, the character set the protocol uses for the desktop name and
// clipboard text.
func decodeLatin1(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().String(string(b))
	if err != nil {
		return string(b)
	}
	return out
}

// encodeLatin1 converts a UTF-8 Go string to Latin-1 wire bytes.
func encodeLatin1(s string) ([]byte, error) {
	out, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}
