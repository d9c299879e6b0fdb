package portstate

import (
	"fmt"
	"strconv"
	"strings"
)

// PortState is an ordered sequence of port power states. Index 0 is
// port 1. The length must match the port count of the hub it
// describes; the codec never infers a port count from input length.
type PortState []bool

// MaxPortCount is the largest port count a Codec will accept. The
// supported hub models top out well below this; 64 keeps the whole
// state in a single uint64.
const MaxPortCount = 64

// Codec converts between a PortState and its textual encodings for a
// hub with a fixed number of ports. All methods are pure functions and
// safe for concurrent use.
type Codec struct {
	portCount uint
}

// NewCodec creates a Codec for a hub with the given number of ports.
func NewCodec(portCount uint) (*Codec, error) {
	if portCount == 0 || portCount > MaxPortCount {
		return nil, fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidPortCount, portCount, MaxPortCount)
	}
	return &Codec{portCount: portCount}, nil
}

// PortCount returns the configured number of ports.
func (c *Codec) PortCount() uint {
	return c.portCount
}

// HexWidth returns the fixed digit width of hex encodings produced by
// Encode: one digit per four ports, rounded up.
func (c *Codec) HexWidth() int {
	return int((c.portCount + 3) / 4)
}

// Encode packs ports into a bitmask (port 1 = bit 0) and renders it as
// uppercase hex, zero-padded on the left to HexWidth digits.
func (c *Codec) Encode(ports PortState) (string, error) {
	if uint(len(ports)) != c.portCount {
		return "", fmt.Errorf("%w: got %d states, want %d", ErrInvalidLength, len(ports), c.portCount)
	}

	var mask uint64
	for i, on := range ports {
		if on {
			mask |= 1 << uint(i)
		}
	}

	return fmt.Sprintf("%0*X", c.HexWidth(), mask), nil
}

// Decode parses a hex string (case-insensitive) into a PortState of
// exactly PortCount entries. Bits beyond the configured port count are
// ignored; the port count is never widened to fit the input.
func (c *Codec) Decode(hexState string) (PortState, error) {
	if hexState == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidHex)
	}
	for i := 0; i < len(hexState); i++ {
		if !isHexDigit(hexState[i]) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHex, hexState)
		}
	}

	// Digits beyond the low 16 can only affect bits above MaxPortCount,
	// which are ignored regardless.
	if len(hexState) > 16 {
		hexState = hexState[len(hexState)-16:]
	}

	mask, err := strconv.ParseUint(hexState, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHex, hexState)
	}

	ports := make(PortState, c.portCount)
	for i := range ports {
		ports[i] = mask>>uint(i)&1 == 1
	}
	return ports, nil
}

// BitmapString renders ports as a string of '0' and '1' characters,
// one per port, port 1 first, with no delimiters.
func (c *Codec) BitmapString(ports PortState) (string, error) {
	if uint(len(ports)) != c.portCount {
		return "", fmt.Errorf("%w: got %d states, want %d", ErrInvalidLength, len(ports), c.portCount)
	}

	var b strings.Builder
	b.Grow(len(ports))
	for _, on := range ports {
		if on {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String(), nil
}

// ParseBitmap is the inverse of BitmapString. The input must contain
// exactly PortCount characters, each '0' or '1'.
func (c *Codec) ParseBitmap(bitmap string) (PortState, error) {
	if uint(len(bitmap)) != c.portCount {
		return nil, fmt.Errorf("%w: got %d characters, want %d", ErrInvalidLength, len(bitmap), c.portCount)
	}

	ports := make(PortState, len(bitmap))
	for i := 0; i < len(bitmap); i++ {
		switch bitmap[i] {
		case '1':
			ports[i] = true
		case '0':
			ports[i] = false
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidBitmap, bitmap)
		}
	}
	return ports, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
