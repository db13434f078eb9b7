package tap

import "testing"

func TestViewMode(t *testing.T) {
	if ViewASCII.String() != "ascii" || ViewHex.String() != "hex" {
		t.Errorf("String: ascii=%q hex=%q", ViewASCII.String(), ViewHex.String())
	}

	if got := ViewHex.Render([]byte{0xDE, 0xAD}); got != "DE AD " {
		t.Errorf("hex render=%q", got)
	}
	if got := ViewASCII.Render([]byte("ok\x00")); got != "ok." {
		t.Errorf("ascii render=%q", got)
	}

	for _, tc := range []struct {
		in   string
		want ViewMode
	}{
		{"ascii", ViewASCII},
		{"hex", ViewHex},
		{"HEX", ViewHex},
	} {
		got, err := ParseViewMode(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseViewMode(%q)=%v,%v", tc.in, got, err)
		}
	}
	if _, err := ParseViewMode("binary"); err == nil {
		t.Error("ParseViewMode(binary) succeeded")
	}
}
