package handle

import "testing"

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		typ   Type
		flags Flags
		index uint32
	}{
		{TypeBuffer, 0, 0},
		{TypeTexture, Persistent, 1},
		{TypeArgumentBuffer, Persistent | WindowHandle, 1<<29 - 1},
		{TypeImageblock, ImmutableOnceInitialised, 42},
	}

	for _, c := range cases {
		h := Encode(c.typ, c.flags, c.index)
		gotType, gotFlags, gotIndex := Decode(h)
		if gotType != c.typ || gotFlags != c.flags || gotIndex != c.index {
			t.Fatalf("round trip mismatch for %+v: got (%v,%v,%v)", c, gotType, gotFlags, gotIndex)
		}
	}
}

func TestInjective(t *testing.T) {
	seen := map[Handle]bool{}
	for typ := TypeBuffer; typ < typeCount; typ++ {
		for _, flags := range []Flags{0, Persistent, WindowHandle, Persistent | HistoryBuffer} {
			for _, idx := range []uint32{0, 1, 7, 1000} {
				h := Encode(typ, flags, idx)
				if seen[h] {
					t.Fatalf("encode not injective: collision at %v", h)
				}
				seen[h] = true
			}
		}
	}
}

func TestInvalid(t *testing.T) {
	if Invalid.Valid() {
		t.Fatal("Invalid must not be Valid()")
	}
	h := Encode(TypeBuffer, 0, 0)
	if !h.Valid() {
		t.Fatal("freshly encoded handle must be Valid()")
	}
}

func TestFlagsContains(t *testing.T) {
	f := Persistent | HistoryBuffer
	if !f.Contains(Persistent) {
		t.Fatal("expected Contains(Persistent)")
	}
	if f.Contains(WindowHandle) {
		t.Fatal("did not expect Contains(WindowHandle)")
	}
}
