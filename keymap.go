// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

// X11 keysym values needed to synthesize printable-character and modifier
// key events. See X11/keysymdef.h for the full table; only the subset
// required by the default keymap is reproduced here.
const (
	xkBackSpace   = 0xff08
	xkTab         = 0xff09
	xkReturn      = 0xff0d
	xkEscape      = 0xff1b
	xkDelete      = 0xffff
	xkSpace       = 0x0020
	xkShiftLeft   = 0xffe1
	xkControlLeft = 0xffe3
	xkAltLeft     = 0xffe9
	xkMetaLeft    = 0xffe7
	xkAltGr       = 0xfe03
)

// ModifierFlags reports which host modifier keys are currently held at the
// moment a virtual key is translated. AltGr combinations are the reason this
// is a bitmask rather than a single "shift state" byte: a character typed
// with AltGr may arrive with Control and Alt also flagged (many keyboard
// drivers synthesize AltGr as Ctrl+Alt), and the keymap must tell them apart
// from a literal Ctrl+Alt chord.
type ModifierFlags uint8

// Modifier bits for ModifierFlags.
const (
	ModShift ModifierFlags = 1 << iota
	ModControl
	ModAlt
	ModAltGr
	ModMeta
)

// KeysymEvent is one (keysym, down) pair to be sent to the server via
// ClientConn.KeyEvent.
type KeysymEvent struct {
	Keysym uint32
	Down   bool
}

// KeyTranslation is the result of translating one host virtual key press
// into RFB keysym events (§4.7). ModifiersToRelease is sent, in order, as
// KeyEvent(mod, false) before Keysyms; ModifiersToRestore is sent as
// KeyEvent(mod, true) after, so a combination like AltGr+X never reaches the
// server as Ctrl+Alt+X. A Keymap that cannot represent vk returns a zero
// KeyTranslation (nil Keysyms).
type KeyTranslation struct {
	ModifiersToRelease []uint32
	Keysyms            []KeysymEvent
	ModifiersToRestore []uint32
}

// Keymap translates a host virtual key code and its currently-held modifier
// flags into the keysym events needed to reproduce it on the server.
type Keymap interface {
	Translate(vk uint32, flags ModifierFlags) KeyTranslation
}

// USKeymap is a minimal keysym table covering US-ASCII printable characters
// plus the common control keys, sufficient for sending typed text and basic
// navigation without requiring the caller to know X11 keysym values. Virtual
// key codes for printable characters are their own Unicode code point (the
// unshifted character for letters); ModShift/ModAltGr in flags govern
// whether Shift is held or Control/Alt are transiently released around it.
type USKeymap struct{}

// Translate implements Keymap for the US-ASCII layout.
func (USKeymap) Translate(vk uint32, flags ModifierFlags) KeyTranslation {
	keysym, shifts, ok := usBaseKeysym(vk)
	if !ok {
		return KeyTranslation{}
	}

	needsShift := shifts || flags&ModShift != 0

	var release, restore []uint32
	if flags&ModAltGr != 0 {
		if flags&ModControl != 0 {
			release = append(release, xkControlLeft)
		}
		if flags&ModAlt != 0 {
			release = append(release, xkAltLeft)
		}
		restore = reversed(release)
	}

	keysyms := make([]KeysymEvent, 0, 4)
	if needsShift {
		keysyms = append(keysyms, KeysymEvent{xkShiftLeft, true})
	}
	keysyms = append(keysyms, KeysymEvent{keysym, true}, KeysymEvent{keysym, false})
	if needsShift {
		keysyms = append(keysyms, KeysymEvent{xkShiftLeft, false})
	}

	return KeyTranslation{ModifiersToRelease: release, Keysyms: keysyms, ModifiersToRestore: restore}
}

// usBaseKeysym returns the keysym for vk under the US layout and whether it
// requires Shift to be held regardless of ModifierFlags (punctuation that is
// itself a shifted character, e.g. '!').
func usBaseKeysym(vk uint32) (keysym uint32, needsShift bool, ok bool) {
	r := rune(vk)
	switch {
	case r == '\b':
		return xkBackSpace, false, true
	case r == '\t':
		return xkTab, false, true
	case r == '\n' || r == '\r':
		return xkReturn, false, true
	case r == 0x1b:
		return xkEscape, false, true
	case r == 0x7f:
		return xkDelete, false, true
	case r == ' ':
		return xkSpace, false, true
	case r >= 'a' && r <= 'z':
		return uint32(r), false, true
	case r >= 'A' && r <= 'Z':
		// Uppercase letters are produced by holding Shift over the
		// lowercase keysym; the caller may also pass this vk with
		// ModShift already set, which is harmless (needsShift is ORed).
		return uint32(r) + ('a' - 'A'), true, true
	case r >= '0' && r <= '9':
		return uint32(r), false, true
	case r >= '!' && r <= '~':
		if base, shifted := shiftedPunctuation[r]; shifted {
			return uint32(base), true, true
		}
		return uint32(r), false, true
	default:
		return 0, false, false
	}
}

// shiftedPunctuation maps a shifted US-keyboard punctuation character to the
// unshifted keysym that, combined with Shift, produces it.
var shiftedPunctuation = map[rune]rune{
	'!': '1', '@': '2', '#': '3', '$': '4', '%': '5',
	'^': '6', '&': '7', '*': '8', '(': '9', ')': '0',
	'_': '-', '+': '=', '{': '[', '}': ']', '|': '\\',
	':': ';', '"': '\'', '<': ',', '>': '.', '?': '/', '~': '`',
}

func reversed(in []uint32) []uint32 {
	out := make([]uint32, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// isModifierKeysym reports whether keysym is one of the modifier keys whose
// held/released state ClientConn tracks for focus-loss release.
func isModifierKeysym(keysym uint32) bool {
	switch keysym {
	case xkShiftLeft, xkControlLeft, xkAltLeft, xkMetaLeft, xkAltGr:
		return true
	default:
		return false
	}
}

// SendKey translates vk under the session's configured keymap (USKeymap if
// none was supplied) and sends the resulting modifier-release, keysym, and
// modifier-restore events in order (§4.7). A no-op under ViewOnly.
func (c *ClientConn) SendKey(vk uint32, flags ModifierFlags) error {
	if c.config.ViewOnly {
		return nil
	}

	translation := c.keymap.Translate(vk, flags)
	if len(translation.Keysyms) == 0 {
		return validationError("ClientConn.SendKey", "keymap cannot represent virtual key", nil)
	}

	for _, mod := range translation.ModifiersToRelease {
		if err := c.KeyEvent(mod, false); err != nil {
			return err
		}
	}
	for _, ks := range translation.Keysyms {
		if err := c.KeyEvent(ks.Keysym, ks.Down); err != nil {
			return err
		}
	}
	for _, mod := range translation.ModifiersToRestore {
		if err := c.KeyEvent(mod, true); err != nil {
			return err
		}
	}
	return nil
}

// SendText types a string by translating each rune into a virtual key and
// modifier flags and sending it through SendKey.
func (c *ClientConn) SendText(text string) error {
	for _, r := range text {
		vk, flags, ok := runeToVK(r)
		if !ok {
			return validationError("ClientConn.SendText", "keymap cannot represent character", nil)
		}
		if err := c.SendKey(vk, flags); err != nil {
			return err
		}
	}
	return nil
}

// runeToVK maps a rune to the (vk, flags) pair USKeymap expects: the
// unshifted virtual key plus ModShift when the rune needs Shift held.
func runeToVK(r rune) (vk uint32, flags ModifierFlags, ok bool) {
	switch {
	case r >= 'A' && r <= 'Z':
		return uint32(r) + ('a' - 'A'), ModShift, true
	case r >= '!' && r <= '~':
		if base, shifted := shiftedPunctuation[r]; shifted {
			return uint32(base), ModShift, true
		}
		return uint32(r), 0, true
	case r == '\b' || r == '\t' || r == '\n' || r == '\r' || r == 0x1b || r == 0x7f || r == ' ' ||
		(r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
		return uint32(r), 0, true
	default:
		return 0, 0, false
	}
}
