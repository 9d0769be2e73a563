// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"io"
	"net"
	"testing"
)

func TestUSKeymap_PlainLetterNoModifiers(t *testing.T) {
	tr := USKeymap{}.Translate('a', 0)
	if len(tr.ModifiersToRelease) != 0 || len(tr.ModifiersToRestore) != 0 {
		t.Fatalf("plain 'a' should not touch modifiers, got %+v", tr)
	}
	want := []KeysymEvent{{uint32('a'), true}, {uint32('a'), false}}
	if len(tr.Keysyms) != len(want) || tr.Keysyms[0] != want[0] || tr.Keysyms[1] != want[1] {
		t.Errorf("Translate('a', 0).Keysyms = %+v, want %+v", tr.Keysyms, want)
	}
}

func TestUSKeymap_UppercaseHoldsShift(t *testing.T) {
	tr := USKeymap{}.Translate('A', 0)
	want := []KeysymEvent{
		{xkShiftLeft, true},
		{uint32('a'), true}, {uint32('a'), false},
		{xkShiftLeft, false},
	}
	if len(tr.Keysyms) != len(want) {
		t.Fatalf("Translate('A', 0).Keysyms = %+v, want %+v", tr.Keysyms, want)
	}
	for i := range want {
		if tr.Keysyms[i] != want[i] {
			t.Errorf("Keysyms[%d] = %+v, want %+v", i, tr.Keysyms[i], want[i])
		}
	}
}

func TestUSKeymap_AltGrReleasesAndRestoresControlAlt(t *testing.T) {
	tr := USKeymap{}.Translate('e', ModAltGr|ModControl|ModAlt)

	wantRelease := []uint32{xkControlLeft, xkAltLeft}
	if len(tr.ModifiersToRelease) != len(wantRelease) ||
		tr.ModifiersToRelease[0] != wantRelease[0] || tr.ModifiersToRelease[1] != wantRelease[1] {
		t.Errorf("ModifiersToRelease = %v, want %v", tr.ModifiersToRelease, wantRelease)
	}

	wantRestore := []uint32{xkAltLeft, xkControlLeft}
	if len(tr.ModifiersToRestore) != len(wantRestore) ||
		tr.ModifiersToRestore[0] != wantRestore[0] || tr.ModifiersToRestore[1] != wantRestore[1] {
		t.Errorf("ModifiersToRestore = %v, want %v (reverse order of release)", tr.ModifiersToRestore, wantRestore)
	}

	for _, ks := range tr.Keysyms {
		if ks.Keysym == xkControlLeft || ks.Keysym == xkAltLeft {
			t.Errorf("Control/Alt must not appear in Keysyms for an AltGr combo, got %+v", tr.Keysyms)
		}
	}
}

func TestUSKeymap_UnrepresentableVKReturnsEmptyTranslation(t *testing.T) {
	tr := USKeymap{}.Translate(0x10FFFF, 0)
	if len(tr.Keysyms) != 0 {
		t.Errorf("unrepresentable vk should return no keysyms, got %+v", tr)
	}
}

func TestUSKeymap_ShiftedPunctuationUnshiftsBase(t *testing.T) {
	tr := USKeymap{}.Translate('!', 0)
	if len(tr.Keysyms) < 2 || tr.Keysyms[0].Keysym != xkShiftLeft {
		t.Errorf("'!' should hold Shift over '1', got %+v", tr.Keysyms)
	}
}

func TestClientConn_OnFocusLostReleasesTrackedModifiers(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	go io.Copy(io.Discard, server)

	c := &ClientConn{t: newTransport(client), config: NewClientConfig().normalized()}
	c.trackModifier(xkShiftLeft, true)
	c.trackModifier(xkControlLeft, true)

	if len(c.heldModifiers) != 2 {
		t.Fatalf("expected 2 held modifiers, got %d", len(c.heldModifiers))
	}

	if err := c.OnFocusLost(); err != nil {
		t.Fatalf("OnFocusLost() error = %v", err)
	}
	if len(c.heldModifiers) != 0 {
		t.Errorf("OnFocusLost() should clear held modifiers, got %v", c.heldModifiers)
	}
}
