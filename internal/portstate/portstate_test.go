package portstate

import (
	"errors"
	"testing"
)

func mustCodec(t *testing.T, portCount uint) *Codec {
	t.Helper()
	c, err := NewCodec(portCount)
	if err != nil {
		t.Fatalf("NewCodec(%d) failed: %v", portCount, err)
	}
	return c
}

func TestNewCodec(t *testing.T) {
	if _, err := NewCodec(0); !errors.Is(err, ErrInvalidPortCount) {
		t.Errorf("NewCodec(0) error = %v, want ErrInvalidPortCount", err)
	}
	if _, err := NewCodec(MaxPortCount + 1); !errors.Is(err, ErrInvalidPortCount) {
		t.Errorf("NewCodec(%d) error = %v, want ErrInvalidPortCount", MaxPortCount+1, err)
	}
	c := mustCodec(t, 7)
	if c.PortCount() != 7 {
		t.Errorf("PortCount() = %d, want 7", c.PortCount())
	}
}

func TestHexWidth(t *testing.T) {
	tests := []struct {
		portCount uint
		want      int
	}{
		{1, 1},
		{4, 1},
		{5, 2},
		{7, 2},
		{8, 2},
		{16, 4},
	}
	for _, tt := range tests {
		c := mustCodec(t, tt.portCount)
		if got := c.HexWidth(); got != tt.want {
			t.Errorf("HexWidth() with %d ports = %d, want %d", tt.portCount, got, tt.want)
		}
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		portCount uint
		ports     PortState
		want      string
	}{
		{"port 1 and 3 on", 4, PortState{true, false, true, false}, "5"},
		{"all off", 4, PortState{false, false, false, false}, "0"},
		{"all on", 4, PortState{true, true, true, true}, "F"},
		{"all off 7 ports", 7, PortState{false, false, false, false, false, false, false}, "00"},
		{"all on 7 ports", 7, PortState{true, true, true, true, true, true, true}, "7F"},
		{"port 5 only", 7, PortState{false, false, false, false, true, false, false}, "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustCodec(t, tt.portCount)
			got, err := c.Encode(tt.ports)
			if err != nil {
				t.Fatalf("Encode() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeInvalidLength(t *testing.T) {
	c := mustCodec(t, 4)
	if _, err := c.Encode(PortState{true, false}); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("Encode() with short input error = %v, want ErrInvalidLength", err)
	}
	if _, err := c.Encode(PortState{true, false, true, false, true}); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("Encode() with long input error = %v, want ErrInvalidLength", err)
	}
}

func TestDecode(t *testing.T) {
	c := mustCodec(t, 4)

	ports, err := c.Decode("5")
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	want := PortState{true, false, true, false}
	if len(ports) != len(want) {
		t.Fatalf("Decode() returned %d states, want %d", len(ports), len(want))
	}
	for i := range want {
		if ports[i] != want[i] {
			t.Errorf("Decode()[%d] = %v, want %v", i, ports[i], want[i])
		}
	}

	// Case-insensitive.
	upper, err := c.Decode("F")
	if err != nil {
		t.Fatalf("Decode(\"F\") failed: %v", err)
	}
	lower, err := c.Decode("f")
	if err != nil {
		t.Fatalf("Decode(\"f\") failed: %v", err)
	}
	for i := range upper {
		if upper[i] != lower[i] {
			t.Errorf("Decode case mismatch at index %d", i)
		}
		if !upper[i] {
			t.Errorf("Decode(\"F\")[%d] = false, want true", i)
		}
	}
}

func TestDecodeIgnoresHighBits(t *testing.T) {
	c := mustCodec(t, 4)

	// 0xF5: bits 4..7 are beyond the port count and must be ignored.
	ports, err := c.Decode("F5")
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if len(ports) != 4 {
		t.Fatalf("Decode() returned %d states, want 4", len(ports))
	}
	want := PortState{true, false, true, false}
	for i := range want {
		if ports[i] != want[i] {
			t.Errorf("Decode()[%d] = %v, want %v", i, ports[i], want[i])
		}
	}

	// Very long input only contributes its low-order digits.
	ports, err = c.Decode("00000000000000000005")
	if err != nil {
		t.Fatalf("Decode() with long input failed: %v", err)
	}
	if !ports[0] || ports[1] || !ports[2] || ports[3] {
		t.Errorf("Decode() with long input = %v, want [true false true false]", ports)
	}
}

func TestDecodeInvalidHex(t *testing.T) {
	c := mustCodec(t, 4)
	for _, input := range []string{"", "0x5", "5g", "hello", " 5"} {
		if _, err := c.Decode(input); !errors.Is(err, ErrInvalidHex) {
			t.Errorf("Decode(%q) error = %v, want ErrInvalidHex", input, err)
		}
	}
}

func TestBitmapString(t *testing.T) {
	c := mustCodec(t, 4)

	got, err := c.BitmapString(PortState{true, false, true, false})
	if err != nil {
		t.Fatalf("BitmapString() failed: %v", err)
	}
	if got != "1010" {
		t.Errorf("BitmapString() = %q, want %q", got, "1010")
	}

	// Pure function: repeated application yields identical output.
	again, err := c.BitmapString(PortState{true, false, true, false})
	if err != nil {
		t.Fatalf("BitmapString() failed: %v", err)
	}
	if again != got {
		t.Errorf("BitmapString() not stable: %q then %q", got, again)
	}

	if _, err := c.BitmapString(PortState{true}); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("BitmapString() with short input error = %v, want ErrInvalidLength", err)
	}
}

func TestParseBitmap(t *testing.T) {
	c := mustCodec(t, 4)

	ports, err := c.ParseBitmap("1010")
	if err != nil {
		t.Fatalf("ParseBitmap() failed: %v", err)
	}
	want := PortState{true, false, true, false}
	for i := range want {
		if ports[i] != want[i] {
			t.Errorf("ParseBitmap()[%d] = %v, want %v", i, ports[i], want[i])
		}
	}

	if _, err := c.ParseBitmap("10"); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("ParseBitmap() with short input error = %v, want ErrInvalidLength", err)
	}
	if _, err := c.ParseBitmap("10x0"); !errors.Is(err, ErrInvalidBitmap) {
		t.Errorf("ParseBitmap() with bad character error = %v, want ErrInvalidBitmap", err)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, portCount := range []uint{1, 4, 7, 8, 16} {
		c := mustCodec(t, portCount)

		// Exhaust all states for small counts, sample for larger ones.
		limit := uint64(1) << portCount
		step := uint64(1)
		if portCount > 8 {
			step = 37
		}

		for mask := uint64(0); mask < limit; mask += step {
			ports := make(PortState, portCount)
			for i := range ports {
				ports[i] = mask>>uint(i)&1 == 1
			}

			encoded, err := c.Encode(ports)
			if err != nil {
				t.Fatalf("Encode() failed for mask %#x: %v", mask, err)
			}
			if len(encoded) != c.HexWidth() {
				t.Errorf("Encode() width = %d, want %d (ports=%d)", len(encoded), c.HexWidth(), portCount)
			}

			decoded, err := c.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode(%q) failed: %v", encoded, err)
			}
			for i := range ports {
				if decoded[i] != ports[i] {
					t.Fatalf("round trip mismatch at port %d for mask %#x", i+1, mask)
				}
			}

			bitmap, err := c.BitmapString(ports)
			if err != nil {
				t.Fatalf("BitmapString() failed for mask %#x: %v", mask, err)
			}
			reparsed, err := c.ParseBitmap(bitmap)
			if err != nil {
				t.Fatalf("ParseBitmap(%q) failed: %v", bitmap, err)
			}
			for i := range ports {
				if reparsed[i] != ports[i] {
					t.Fatalf("bitmap round trip mismatch at port %d for mask %#x", i+1, mask)
				}
			}
		}
	}
}

func TestAllOnValue(t *testing.T) {
	c := mustCodec(t, 7)
	ports := make(PortState, 7)
	for i := range ports {
		ports[i] = true
	}
	got, err := c.Encode(ports)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	// 2^7 - 1 = 0x7F
	if got != "7F" {
		t.Errorf("Encode(all on) = %q, want %q", got, "7F")
	}
}
